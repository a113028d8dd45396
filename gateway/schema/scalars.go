package schema

import (
	"encoding/json"
	"math/big"
	"strconv"
	"time"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04:05"
)

// jsonScalar carries any JSON value.
var jsonScalar = graphql.NewScalar(graphql.ScalarConfig{
	Name:        "JSON",
	Description: "Any JSON value.",
	Serialize:   serializeJSON,
	ParseValue: func(value interface{}) interface{} {
		return value
	},
	ParseLiteral: literalValue,
})

var jsonObjectScalar = graphql.NewScalar(graphql.ScalarConfig{
	Name:        "JSONObject",
	Description: "A JSON object.",
	Serialize: func(value interface{}) interface{} {
		out := serializeJSON(value)
		if _, ok := out.(map[string]interface{}); !ok {
			return nil
		}
		return out
	},
	ParseValue: func(value interface{}) interface{} {
		if m, ok := value.(map[string]interface{}); ok {
			return m
		}
		return nil // to tell GraphQL that the value is invalid
	},
	ParseLiteral: func(valueAST ast.Value) interface{} {
		if _, ok := valueAST.(*ast.ObjectValue); !ok {
			return nil
		}
		return literalValue(valueAST)
	},
})

var dateTimeScalar = newTimeScalar("DateTime", "An RFC 3339 timestamp.", time.RFC3339)
var dateScalar = newTimeScalar("Date", "A calendar date formatted as YYYY-MM-DD.", dateLayout)
var timeScalar = newTimeScalar("Time", "A time of day formatted as hh:mm:ss.", timeLayout)

// bigIntScalar is serialized as a string so values beyond 2^53 survive JSON clients.
var bigIntScalar = graphql.NewScalar(graphql.ScalarConfig{
	Name:        "BigInt",
	Description: "An integer serialized as a string.",
	Serialize: func(value interface{}) interface{} {
		switch v := value.(type) {
		case int:
			return strconv.Itoa(v)
		case int32:
			return strconv.FormatInt(int64(v), 10)
		case int64:
			return strconv.FormatInt(v, 10)
		case uint64:
			return strconv.FormatUint(v, 10)
		case *big.Int:
			if v == nil {
				return nil
			}
			return v.String()
		case string:
			if _, ok := new(big.Int).SetString(v, 10); ok {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', 0, 64)
		}
		return nil
	},
	ParseValue: func(value interface{}) interface{} {
		switch v := value.(type) {
		case string:
			return parseBigInt(v)
		case float64:
			return parseBigInt(strconv.FormatFloat(v, 'f', 0, 64))
		case int:
			return big.NewInt(int64(v))
		case int64:
			return big.NewInt(v)
		}
		return nil
	},
	ParseLiteral: func(valueAST ast.Value) interface{} {
		switch v := valueAST.(type) {
		case *ast.IntValue:
			return parseBigInt(v.Value)
		case *ast.StringValue:
			return parseBigInt(v.Value)
		}
		return nil
	},
})

func parseBigInt(s string) interface{} {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil
	}
	return n
}

func newTimeScalar(name, description, layout string) *graphql.Scalar {
	return graphql.NewScalar(graphql.ScalarConfig{
		Name:        name,
		Description: description,
		Serialize: func(value interface{}) interface{} {
			switch v := value.(type) {
			case time.Time:
				return v.Format(layout)
			case *time.Time:
				if v == nil {
					return nil
				}
				return v.Format(layout)
			case string:
				if _, err := time.Parse(layout, v); err == nil {
					return v
				}
			}
			return nil
		},
		ParseValue: func(value interface{}) interface{} {
			if s, ok := value.(string); ok {
				if t, err := time.Parse(layout, s); err == nil {
					return t
				}
			}
			return nil
		},
		ParseLiteral: func(valueAST ast.Value) interface{} {
			if s, ok := valueAST.(*ast.StringValue); ok {
				if t, err := time.Parse(layout, s.Value); err == nil {
					return t
				}
			}
			return nil
		},
	})
}

// passthroughScalar backs custom scalars declared in SDL without an implementation.
func passthroughScalar(name, description string) *graphql.Scalar {
	return graphql.NewScalar(graphql.ScalarConfig{
		Name:         name,
		Description:  description,
		Serialize:    func(value interface{}) interface{} { return value },
		ParseValue:   func(value interface{}) interface{} { return value },
		ParseLiteral: literalValue,
	})
}

// rootScalars are the implementations of the scalars declared by the root fragment.
func rootScalars() map[string]*graphql.Scalar {
	return map[string]*graphql.Scalar{
		jsonScalar.Name():       jsonScalar,
		jsonObjectScalar.Name(): jsonObjectScalar,
		dateTimeScalar.Name():   dateTimeScalar,
		dateScalar.Name():       dateScalar,
		timeScalar.Name():       timeScalar,
		bigIntScalar.Name():     bigIntScalar,
	}
}

// serializeJSON normalizes value to plain JSON types so structs and typed maps
// are rendered the way encoding/json would.
func serializeJSON(value interface{}) interface{} {
	switch value.(type) {
	case nil, string, bool, float64, int, int64, map[string]interface{}, []interface{}:
		return value
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return nil
	}
	var out interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}

func literalValue(valueAST ast.Value) interface{} {
	switch v := valueAST.(type) {
	case *ast.StringValue:
		return v.Value
	case *ast.BooleanValue:
		return v.Value
	case *ast.IntValue:
		if n, err := strconv.ParseInt(v.Value, 10, 64); err == nil {
			return n
		}
		return v.Value
	case *ast.FloatValue:
		if f, err := strconv.ParseFloat(v.Value, 64); err == nil {
			return f
		}
		return v.Value
	case *ast.EnumValue:
		return v.Value
	case *ast.ListValue:
		out := make([]interface{}, 0, len(v.Values))
		for _, item := range v.Values {
			out = append(out, literalValue(item))
		}
		return out
	case *ast.ObjectValue:
		out := make(map[string]interface{}, len(v.Fields))
		for _, field := range v.Fields {
			out[field.Name.Value] = literalValue(field.Value)
		}
		return out
	}
	return nil
}
