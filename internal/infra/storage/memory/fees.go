package memory

import (
	"context"
	"sort"

	domainfees "padicrib/internal/domain/fees"
	domainlistings "padicrib/internal/domain/listings"
)

type feeRepo struct{ u *Unit }

func (r feeRepo) referenceTaken(ref string, except domainfees.ID) bool {
	if ref == "" {
		return false
	}
	for id, f := range r.u.tx.fees {
		if id != except && f.Reference == ref {
			return true
		}
	}
	return false
}

func (r feeRepo) Create(ctx context.Context, fee *domainfees.Fee) error {
	if err := r.u.check("fees.create"); err != nil {
		return err
	}
	if _, ok := r.u.tx.listings[fee.ListingID]; !ok {
		return domainlistings.ErrNotFound
	}
	if r.referenceTaken(fee.Reference, 0) {
		return domainfees.ErrDuplicate
	}
	fee.ID = domainfees.ID(r.u.tx.nextID())
	r.u.tx.fees[fee.ID] = *fee
	return nil
}

func (r feeRepo) Save(ctx context.Context, fee *domainfees.Fee) error {
	if err := r.u.check("fees.save"); err != nil {
		return err
	}
	if _, ok := r.u.tx.fees[fee.ID]; !ok {
		return domainfees.ErrNotFound
	}
	if r.referenceTaken(fee.Reference, fee.ID) {
		return domainfees.ErrDuplicate
	}
	r.u.tx.fees[fee.ID] = *fee
	return nil
}

func (r feeRepo) ByReference(ctx context.Context, reference string) (*domainfees.Fee, error) {
	if err := r.u.check("fees.by_reference"); err != nil {
		return nil, err
	}
	if reference == "" {
		return nil, domainfees.ErrNotFound
	}
	for _, f := range r.u.tx.fees {
		if f.Reference == reference {
			cp := f
			return &cp, nil
		}
	}
	return nil, domainfees.ErrNotFound
}

func (r feeRepo) UnpaidStub(ctx context.Context, listing domainlistings.ID) (*domainfees.Fee, error) {
	if err := r.u.check("fees.unpaid_stub"); err != nil {
		return nil, err
	}
	var found *domainfees.Fee
	for _, f := range r.u.tx.fees {
		if f.ListingID != listing || f.Paid {
			continue
		}
		if found == nil || f.ID < found.ID {
			cp := f
			found = &cp
		}
	}
	if found == nil {
		return nil, domainfees.ErrNotFound
	}
	return found, nil
}

func (r feeRepo) ByListing(ctx context.Context, listing domainlistings.ID) ([]*domainfees.Fee, error) {
	if err := r.u.check("fees.by_listing"); err != nil {
		return nil, err
	}
	out := make([]*domainfees.Fee, 0)
	for _, f := range r.u.tx.fees {
		if f.ListingID == listing {
			cp := f
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r feeRepo) DeleteByListing(ctx context.Context, listing domainlistings.ID) error {
	if err := r.u.check("fees.delete_by_listing"); err != nil {
		return err
	}
	for id, f := range r.u.tx.fees {
		if f.ListingID == listing {
			delete(r.u.tx.fees, id)
		}
	}
	return nil
}
