package schema

var (
	JSONScalarForTest       = jsonScalar
	JSONObjectScalarForTest = jsonObjectScalar
	DateTimeScalarForTest   = dateTimeScalar
	DateScalarForTest       = dateScalar
	TimeScalarForTest       = timeScalar
	BigIntScalarForTest     = bigIntScalar
)

func NormalizeNumbersForTest(v interface{}) interface{} {
	return normalizeNumbers(v)
}
