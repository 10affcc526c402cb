package memory

import (
	"context"
	"sort"

	domainlistings "padicrib/internal/domain/listings"
	domainreviews "padicrib/internal/domain/reviews"
	domainuser "padicrib/internal/domain/user"
)

type reviewRepo struct{ u *Unit }

func (r reviewRepo) load(rv domainreviews.Review) *domainreviews.Review {
	out := rv
	if u, ok := r.u.tx.users[rv.UserID]; ok {
		out.UserName = u.Name
	}
	return &out
}

func (r reviewRepo) Create(ctx context.Context, rv *domainreviews.Review) error {
	if err := r.u.check("reviews.create"); err != nil {
		return err
	}
	if _, ok := r.u.tx.listings[rv.ListingID]; !ok {
		return domainlistings.ErrNotFound
	}
	if rv.ParentID != nil {
		if _, ok := r.u.tx.reviews[*rv.ParentID]; !ok {
			return domainreviews.ErrNotFound
		}
	}
	rv.ID = domainreviews.ID(r.u.tx.nextID())
	r.u.tx.reviews[rv.ID] = *rv
	return nil
}

func (r reviewRepo) ByID(ctx context.Context, id domainreviews.ID) (*domainreviews.Review, error) {
	if err := r.u.check("reviews.by_id"); err != nil {
		return nil, err
	}
	rv, ok := r.u.tx.reviews[id]
	if !ok {
		return nil, domainreviews.ErrNotFound
	}
	return r.load(rv), nil
}

func (r reviewRepo) ByListing(ctx context.Context, listing domainlistings.ID) ([]*domainreviews.Review, error) {
	if err := r.u.check("reviews.by_listing"); err != nil {
		return nil, err
	}
	out := make([]*domainreviews.Review, 0)
	for _, rv := range r.u.tx.reviews {
		if rv.ListingID == listing {
			out = append(out, r.load(rv))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r reviewRepo) deleteWhere(match func(domainreviews.Review) bool) {
	doomed := map[domainreviews.ID]bool{}
	for id, rv := range r.u.tx.reviews {
		if match(rv) {
			doomed[id] = true
		}
	}
	// replies go with their parent
	for id, rv := range r.u.tx.reviews {
		if rv.ParentID != nil && doomed[*rv.ParentID] {
			doomed[id] = true
		}
	}
	for id := range doomed {
		delete(r.u.tx.reviews, id)
	}
}

func (r reviewRepo) DeleteByListing(ctx context.Context, listing domainlistings.ID) error {
	if err := r.u.check("reviews.delete_by_listing"); err != nil {
		return err
	}
	r.deleteWhere(func(rv domainreviews.Review) bool { return rv.ListingID == listing })
	return nil
}

func (r reviewRepo) DeleteByUser(ctx context.Context, u domainuser.ID) error {
	if err := r.u.check("reviews.delete_by_user"); err != nil {
		return err
	}
	r.deleteWhere(func(rv domainreviews.Review) bool { return rv.UserID == u })
	return nil
}
