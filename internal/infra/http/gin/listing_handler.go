package ginserver

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	gin "github.com/gin-gonic/gin"

	"padicrib/internal/app/commands"
	"padicrib/internal/app/dto"
	listingapp "padicrib/internal/app/handlers/listings"
	"padicrib/internal/app/queries"
	domainlistings "padicrib/internal/domain/listings"
)

type ListingHTTP interface {
	Search(c *gin.Context)
	Create(c *gin.Context)
	Get(c *gin.Context)
	FeePage(c *gin.Context)
	AddImages(c *gin.Context)
	DeleteImage(c *gin.Context)
	Dashboard(c *gin.Context)
}

type ListingHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Uploads  Uploads
	Logger   *slog.Logger
}

func (h ListingHandler) Search(c *gin.Context) {
	q := listingapp.SearchListingsQuery{
		State:  strings.TrimSpace(c.Query("state")),
		LGA:    strings.TrimSpace(c.Query("lga")),
		Text:   strings.TrimSpace(c.Query("q")),
		Limit:  queryInt(c, "limit"),
		Offset: queryInt(c, "offset"),
	}
	result, err := queries.Ask[listingapp.SearchListingsQuery, dto.ListingCollection](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Create accepts a multipart form: listing fields, images[], selfie, id_card
// and id_number. Stored files are removed again when the command fails.
func (h ListingHandler) Create(c *gin.Context) {
	p, ok := requireRole(c)
	if !ok {
		return
	}
	form, err := c.MultipartForm()
	if err != nil {
		badRequest(c, "multipart form expected")
		return
	}
	ctx := c.Request.Context()
	images, err := h.Uploads.saveAll(ctx, h.Uploads.Public, form.File["images"])
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	private, err := h.Uploads.saveAll(ctx, h.Uploads.Private, append(firstFile(form.File["selfie"]), firstFile(form.File["id_card"])...))
	if err != nil {
		h.Uploads.discard(ctx, h.Uploads.Public, images...)
		respondError(c, h.Logger, err)
		return
	}
	cmd := listingapp.CreateListingCommand{
		OwnerID:     p.UserID,
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		State:       c.PostForm("state"),
		LGA:         c.PostForm("lga"),
		Address:     c.PostForm("address"),
		Price:       strings.TrimSpace(c.PostForm("price")),
		Images:      images,
		IDNumber:    strings.TrimSpace(c.PostForm("id_number")),
	}
	// selfie and id_card keep their order; a missing one leaves its slot empty
	switch {
	case len(form.File["selfie"]) > 0 && len(form.File["id_card"]) > 0:
		cmd.SelfiePath, cmd.IDCardPath = private[0], private[1]
	case len(form.File["selfie"]) > 0:
		cmd.SelfiePath = private[0]
	case len(form.File["id_card"]) > 0:
		cmd.IDCardPath = private[0]
	}
	result, err := commands.Dispatch[listingapp.CreateListingCommand, *dto.CreatedListing](ctx, h.Commands, cmd)
	if err != nil {
		h.Uploads.discard(ctx, h.Uploads.Public, images...)
		h.Uploads.discard(ctx, h.Uploads.Private, private...)
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h ListingHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	viewer, _ := currentPrincipal(c)
	result, err := queries.Ask[listingapp.GetListingQuery, dto.ListingDetail](c.Request.Context(), h.Queries, listingapp.GetListingQuery{
		ListingID: domainlistings.ID(id),
		Viewer:    viewer,
	})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ListingHandler) FeePage(c *gin.Context) {
	p, ok := requireRole(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	result, err := queries.Ask[listingapp.FeePageQuery, dto.FeePage](c.Request.Context(), h.Queries, listingapp.FeePageQuery{
		ListingID: domainlistings.ID(id),
		Viewer:    p,
	})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ListingHandler) AddImages(c *gin.Context) {
	p, ok := requireRole(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	form, err := c.MultipartForm()
	if err != nil {
		badRequest(c, "multipart form expected")
		return
	}
	ctx := c.Request.Context()
	paths, err := h.Uploads.saveAll(ctx, h.Uploads.Public, form.File["images"])
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	result, err := commands.Dispatch[listingapp.AddImagesCommand, []dto.Image](ctx, h.Commands, listingapp.AddImagesCommand{
		Actor:     p,
		ListingID: domainlistings.ID(id),
		Paths:     paths,
	})
	if err != nil {
		h.Uploads.discard(ctx, h.Uploads.Public, paths...)
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"images": result})
}

func (h ListingHandler) DeleteImage(c *gin.Context) {
	p, ok := requireRole(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	imageID, ok := paramID(c, "imageId")
	if !ok {
		return
	}
	_, err := commands.Dispatch[listingapp.DeleteImageCommand, struct{}](c.Request.Context(), h.Commands, listingapp.DeleteImageCommand{
		Actor:     p,
		ListingID: domainlistings.ID(id),
		ImageID:   domainlistings.ImageID(imageID),
	})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h ListingHandler) Dashboard(c *gin.Context) {
	p, ok := requireRole(c)
	if !ok {
		return
	}
	result, err := queries.Ask[listingapp.OwnerDashboardQuery, dto.OwnerDashboard](c.Request.Context(), h.Queries, listingapp.OwnerDashboardQuery{OwnerID: p.UserID})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func queryInt(c *gin.Context, key string) int {
	v, err := strconv.Atoi(strings.TrimSpace(c.Query(key)))
	if err != nil || v < 0 {
		return 0
	}
	return v
}

var _ ListingHTTP = ListingHandler{}
