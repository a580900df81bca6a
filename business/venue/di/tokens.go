// Package di contains dependency injection tokens for the venue context.
package di

import (
	"github.com/fd1az/crossarb/business/venue/app"
	"github.com/fd1az/crossarb/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Connectors = di.NewToken[[]app.Connector]("venue.Connectors")
)

func GetConnectors(c di.ServiceRegistry) []app.Connector {
	return di.GetToken(c, Connectors)
}
