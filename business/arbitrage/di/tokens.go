// Package di contains dependency injection tokens for the arbitrage context.
package di

import (
	"github.com/fd1az/crossarb/business/arbitrage/app"
	"github.com/fd1az/crossarb/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Engine   = di.NewToken[*app.Engine]("arbitrage.Engine")
	Detector = di.NewToken[*app.Detector]("arbitrage.Detector")
)

// Private service tokens
var (
	Reporter  = di.NewToken[app.Reporter]("arbitrage.Reporter")
	Allocator = di.NewToken[app.Allocator]("arbitrage.Allocator")
)

func GetEngine(c di.ServiceRegistry) *app.Engine {
	return di.GetToken(c, Engine)
}

func GetDetector(c di.ServiceRegistry) *app.Detector {
	return di.GetToken(c, Detector)
}

func GetReporter(c di.ServiceRegistry) app.Reporter {
	return di.GetToken(c, Reporter)
}

func GetAllocator(c di.ServiceRegistry) app.Allocator {
	return di.GetToken(c, Allocator)
}
