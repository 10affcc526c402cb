package memory

import (
	"context"
	"sort"

	domainlistings "padicrib/internal/domain/listings"
	domainverification "padicrib/internal/domain/verification"
)

type verificationRepo struct{ u *Unit }

func (r verificationRepo) ByID(ctx context.Context, id domainverification.ID) (*domainverification.Verification, error) {
	if err := r.u.check("verifications.by_id"); err != nil {
		return nil, err
	}
	v, ok := r.u.tx.verifications[id]
	if !ok {
		return nil, domainverification.ErrNotFound
	}
	return &v, nil
}

func (r verificationRepo) ByListing(ctx context.Context, listing domainlistings.ID) (*domainverification.Verification, error) {
	if err := r.u.check("verifications.by_listing"); err != nil {
		return nil, err
	}
	var found *domainverification.Verification
	for _, v := range r.u.tx.verifications {
		if v.ListingID != listing {
			continue
		}
		if found == nil || v.ID > found.ID {
			cp := v
			found = &cp
		}
	}
	if found == nil {
		return nil, domainverification.ErrNotFound
	}
	return found, nil
}

func (r verificationRepo) ByStatus(ctx context.Context, status domainverification.Status) ([]*domainverification.Verification, error) {
	if err := r.u.check("verifications.by_status"); err != nil {
		return nil, err
	}
	out := make([]*domainverification.Verification, 0)
	for _, v := range r.u.tx.verifications {
		if v.Status == status {
			cp := v
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r verificationRepo) Create(ctx context.Context, v *domainverification.Verification) error {
	if err := r.u.check("verifications.create"); err != nil {
		return err
	}
	if _, ok := r.u.tx.listings[v.ListingID]; !ok {
		return domainlistings.ErrNotFound
	}
	v.ID = domainverification.ID(r.u.tx.nextID())
	r.u.tx.verifications[v.ID] = *v
	return nil
}

func (r verificationRepo) Save(ctx context.Context, v *domainverification.Verification) error {
	if err := r.u.check("verifications.save"); err != nil {
		return err
	}
	if _, ok := r.u.tx.verifications[v.ID]; !ok {
		return domainverification.ErrNotFound
	}
	r.u.tx.verifications[v.ID] = *v
	return nil
}

func (r verificationRepo) DeleteByListing(ctx context.Context, listing domainlistings.ID) error {
	if err := r.u.check("verifications.delete_by_listing"); err != nil {
		return err
	}
	for id, v := range r.u.tx.verifications {
		if v.ListingID == listing {
			delete(r.u.tx.verifications, id)
		}
	}
	return nil
}
