package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	domainlistings "padicrib/internal/domain/listings"
	domainuser "padicrib/internal/domain/user"
)

type listingRepo struct{ u *Unit }

// stored strips transient fields before a listing enters the table.
func stored(l *domainlistings.Listing) domainlistings.Listing {
	cp := *l
	cp.Discard()
	cp.Images = nil
	return cp
}

func (r listingRepo) load(l domainlistings.Listing) *domainlistings.Listing {
	out := l
	out.Images = r.imagesOf(l.ID)
	return &out
}

func (r listingRepo) imagesOf(id domainlistings.ID) []domainlistings.Image {
	imgs := make([]domainlistings.Image, 0)
	for _, img := range r.u.tx.images {
		if img.ListingID == id {
			imgs = append(imgs, img)
		}
	}
	sort.Slice(imgs, func(i, j int) bool { return imgs[i].ID < imgs[j].ID })
	return imgs
}

func (r listingRepo) ByID(ctx context.Context, id domainlistings.ID) (*domainlistings.Listing, error) {
	if err := r.u.check("listings.by_id"); err != nil {
		return nil, err
	}
	l, ok := r.u.tx.listings[id]
	if !ok {
		return nil, domainlistings.ErrNotFound
	}
	return r.load(l), nil
}

// ByIDForUpdate is ByID: units already hold the store's write lock.
func (r listingRepo) ByIDForUpdate(ctx context.Context, id domainlistings.ID) (*domainlistings.Listing, error) {
	return r.ByID(ctx, id)
}

func (r listingRepo) Create(ctx context.Context, l *domainlistings.Listing) error {
	if err := r.u.check("listings.create"); err != nil {
		return err
	}
	l.ID = domainlistings.ID(r.u.tx.nextID())
	r.u.tx.listings[l.ID] = stored(l)
	return nil
}

func (r listingRepo) Save(ctx context.Context, l *domainlistings.Listing) error {
	if err := r.u.check("listings.save"); err != nil {
		return err
	}
	if _, ok := r.u.tx.listings[l.ID]; !ok {
		return domainlistings.ErrNotFound
	}
	r.u.tx.listings[l.ID] = stored(l)
	return nil
}

func (r listingRepo) Delete(ctx context.Context, id domainlistings.ID) error {
	if err := r.u.check("listings.delete"); err != nil {
		return err
	}
	if _, ok := r.u.tx.listings[id]; !ok {
		return domainlistings.ErrNotFound
	}
	delete(r.u.tx.listings, id)
	for key := range r.u.tx.reminders {
		if key.listing == id {
			delete(r.u.tx.reminders, key)
		}
	}
	for cid, c := range r.u.tx.conversations {
		if c.ListingID != nil && *c.ListingID == id {
			c.ListingID = nil
			r.u.tx.conversations[cid] = c
		}
	}
	return nil
}

func (r listingRepo) CountByOwner(ctx context.Context, owner domainuser.ID) (int, error) {
	if err := r.u.check("listings.count_by_owner"); err != nil {
		return 0, err
	}
	n := 0
	for _, l := range r.u.tx.listings {
		if l.OwnerID == owner {
			n++
		}
	}
	return n, nil
}

func (r listingRepo) filter(keep func(domainlistings.Listing) bool) []*domainlistings.Listing {
	out := make([]*domainlistings.Listing, 0)
	for _, l := range r.u.tx.listings {
		if keep(l) {
			out = append(out, r.load(l))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (r listingRepo) ByOwner(ctx context.Context, owner domainuser.ID) ([]*domainlistings.Listing, error) {
	if err := r.u.check("listings.by_owner"); err != nil {
		return nil, err
	}
	return r.filter(func(l domainlistings.Listing) bool { return l.OwnerID == owner }), nil
}

func (r listingRepo) ByStatus(ctx context.Context, status domainlistings.Status) ([]*domainlistings.Listing, error) {
	if err := r.u.check("listings.by_status"); err != nil {
		return nil, err
	}
	return r.filter(func(l domainlistings.Listing) bool { return l.Status == status }), nil
}

func (r listingRepo) SearchPublic(ctx context.Context, params domainlistings.SearchParams) ([]*domainlistings.Listing, error) {
	if err := r.u.check("listings.search"); err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(params.Query))
	out := r.filter(func(l domainlistings.Listing) bool {
		if !l.Public() {
			return false
		}
		if params.State != "" && !strings.EqualFold(l.State, params.State) {
			return false
		}
		if params.LGA != "" && !strings.EqualFold(l.LGA, params.LGA) {
			return false
		}
		if q != "" {
			hay := strings.ToLower(l.Title + " " + l.Description + " " + l.Address)
			if !strings.Contains(hay, q) {
				return false
			}
		}
		return true
	})
	if params.Offset > 0 {
		if params.Offset >= len(out) {
			return []*domainlistings.Listing{}, nil
		}
		out = out[params.Offset:]
	}
	if params.Limit > 0 && len(out) > params.Limit {
		out = out[:params.Limit]
	}
	return out, nil
}

func (r listingRepo) AddImage(ctx context.Context, img *domainlistings.Image) error {
	if err := r.u.check("listings.add_image"); err != nil {
		return err
	}
	if _, ok := r.u.tx.listings[img.ListingID]; !ok {
		return domainlistings.ErrNotFound
	}
	img.ID = domainlistings.ImageID(r.u.tx.nextID())
	r.u.tx.images[img.ID] = *img
	return nil
}

func (r listingRepo) Images(ctx context.Context, id domainlistings.ID) ([]domainlistings.Image, error) {
	if err := r.u.check("listings.images"); err != nil {
		return nil, err
	}
	return r.imagesOf(id), nil
}

func (r listingRepo) ImageByID(ctx context.Context, id domainlistings.ImageID) (*domainlistings.Image, error) {
	if err := r.u.check("listings.image_by_id"); err != nil {
		return nil, err
	}
	img, ok := r.u.tx.images[id]
	if !ok {
		return nil, domainlistings.ErrImageNotFound
	}
	return &img, nil
}

func (r listingRepo) DeleteImage(ctx context.Context, id domainlistings.ImageID) error {
	if err := r.u.check("listings.delete_image"); err != nil {
		return err
	}
	if _, ok := r.u.tx.images[id]; !ok {
		return domainlistings.ErrImageNotFound
	}
	delete(r.u.tx.images, id)
	return nil
}

func (r listingRepo) DeleteImages(ctx context.Context, listing domainlistings.ID) error {
	if err := r.u.check("listings.delete_images"); err != nil {
		return err
	}
	for id, img := range r.u.tx.images {
		if img.ListingID == listing {
			delete(r.u.tx.images, id)
		}
	}
	return nil
}

func (r listingRepo) ExpireDue(ctx context.Context, now time.Time) ([]domainlistings.Expired, error) {
	if err := r.u.check("listings.expire_due"); err != nil {
		return nil, err
	}
	out := make([]domainlistings.Expired, 0)
	for id, l := range r.u.tx.listings {
		if !l.MarkExpired(now) {
			continue
		}
		l.Discard()
		r.u.tx.listings[id] = l
		out = append(out, domainlistings.Expired{ID: l.ID, OwnerID: l.OwnerID, Title: l.Title, PaidUntil: *l.PaidUntil})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r listingRepo) DueForReminder(ctx context.Context, now time.Time, window time.Duration) ([]*domainlistings.Listing, error) {
	if err := r.u.check("listings.due_for_reminder"); err != nil {
		return nil, err
	}
	horizon := now.Add(window)
	return r.filter(func(l domainlistings.Listing) bool {
		if !l.IsActive || l.PaidUntil == nil {
			return false
		}
		return l.PaidUntil.After(now) && !l.PaidUntil.After(horizon)
	}), nil
}

func (r listingRepo) RecordReminder(ctx context.Context, id domainlistings.ID, kind domainlistings.ReminderKind, at time.Time) (bool, error) {
	if err := r.u.check("listings.record_reminder"); err != nil {
		return false, err
	}
	key := reminderKey{listing: id, kind: kind}
	if _, ok := r.u.tx.reminders[key]; ok {
		return false, nil
	}
	r.u.tx.reminders[key] = at.UTC()
	return true, nil
}
