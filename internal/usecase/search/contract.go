package search

import (
	"context"

	"github.com/kailas-cloud/solrq/internal/domain/search/params"
	"github.com/kailas-cloud/solrq/internal/domain/search/response"
	"github.com/kailas-cloud/solrq/internal/domain/setup"
)

// Transport sends assembled parameters to a Solr request handler.
type Transport interface {
	Query(ctx context.Context, handler string, p params.Params) (*response.Response, error)
}

// Setups resolves class setups and their intersections.
type Setups interface {
	Setup(className string) (*setup.Setup, error)
	Composite(classNames ...string) (*setup.CompositeSetup, error)
}
