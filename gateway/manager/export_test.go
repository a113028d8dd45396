package manager

import (
	"github.com/platform-mesh/graphql-module-gateway/common/logger"
	"github.com/platform-mesh/graphql-module-gateway/gateway/globalcontext"
)

// NewServiceForTest returns a service that has not assembled a schema yet.
func NewServiceForTest() *Service {
	s := &Service{
		log:            logger.NewNop(),
		contextHandler: globalcontext.NewHandler(nil),
	}
	s.AppCfg.Gateway.Cors.Enabled = true
	s.AppCfg.Gateway.Cors.AllowedOrigins = "*"
	s.AppCfg.Gateway.Cors.AllowedHeaders = "Authorization"
	return s
}

var GetTokenForTest = getToken
