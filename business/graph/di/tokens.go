// Package di contains dependency injection tokens for the graph context.
package di

import (
	"github.com/fd1az/crossarb/business/graph/app"
	"github.com/fd1az/crossarb/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Graph     = di.NewToken[*app.Graph]("graph.Graph")
	Refresher = di.NewToken[*app.Refresher]("graph.Refresher")
)

func GetGraph(c di.ServiceRegistry) *app.Graph {
	return di.GetToken(c, Graph)
}

func GetRefresher(c di.ServiceRegistry) *app.Refresher {
	return di.GetToken(c, Refresher)
}
