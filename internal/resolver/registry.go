package resolver

import (
	"fmt"
	"sort"
)

type Registration struct {
	ProductType        ProductType `json:"product_type"`
	ResolverIdentifier string      `json:"resolver_identifier"`
}

type Registry struct {
	resolvers map[ProductType]Resolver
}

// NewRegistry wires every product type to its resolver.
func NewRegistry() *Registry {
	return &Registry{
		resolvers: map[ProductType]Resolver{
			ProductAuto:       AutoResolver{},
			ProductHome:       HomeResolver{},
			ProductDisability: DisabilityResolver{},
		},
	}
}

func (r *Registry) Lookup(productType string) (Resolver, error) {
	pt, err := ParseProductType(productType)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", err, productType)
	}
	res, ok := r.resolvers[pt]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProductType, productType)
	}
	return res, nil
}

func (r *Registry) List() []Registration {
	out := make([]Registration, 0, len(r.resolvers))
	for pt, res := range r.resolvers {
		out = append(out, Registration{ProductType: pt, ResolverIdentifier: res.Identifier()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductType < out[j].ProductType })
	return out
}
