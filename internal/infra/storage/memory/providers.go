package memory

import (
	"context"
	"sort"

	domainbooking "padicrib/internal/domain/booking"
	domainproviders "padicrib/internal/domain/providers"
)

type providerRepo struct{ u *Unit }

func (r providerRepo) Create(ctx context.Context, p *domainproviders.Provider) error {
	if err := r.u.check("providers.create"); err != nil {
		return err
	}
	p.ID = domainproviders.ID(r.u.tx.nextID())
	r.u.tx.providers[p.ID] = *p
	return nil
}

func (r providerRepo) ByID(ctx context.Context, id domainproviders.ID) (*domainproviders.Provider, error) {
	if err := r.u.check("providers.by_id"); err != nil {
		return nil, err
	}
	p, ok := r.u.tx.providers[id]
	if !ok {
		return nil, domainproviders.ErrNotFound
	}
	return &p, nil
}

// List returns every provider when kind is empty.
func (r providerRepo) List(ctx context.Context, kind domainbooking.ServiceType) ([]*domainproviders.Provider, error) {
	if err := r.u.check("providers.list"); err != nil {
		return nil, err
	}
	out := make([]*domainproviders.Provider, 0)
	for _, p := range r.u.tx.providers {
		if kind == "" || p.Type == kind {
			cp := p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
