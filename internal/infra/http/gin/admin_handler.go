package ginserver

import (
	"log/slog"
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"

	"padicrib/internal/app/commands"
	"padicrib/internal/app/dto"
	adminapp "padicrib/internal/app/handlers/admin"
	"padicrib/internal/app/queries"
	domainlistings "padicrib/internal/domain/listings"
	domainuser "padicrib/internal/domain/user"
	domainverification "padicrib/internal/domain/verification"
)

type AdminHTTP interface {
	Dashboard(c *gin.Context)
	ApproveListing(c *gin.Context)
	RejectListing(c *gin.Context)
	SuspendListing(c *gin.Context)
	ReactivateListing(c *gin.Context)
	DeleteListing(c *gin.Context)
	Users(c *gin.Context)
	SuspendUser(c *gin.Context)
	ReactivateUser(c *gin.Context)
	DeleteUser(c *gin.Context)
	CreateStaff(c *gin.Context)
	AddProvider(c *gin.Context)
	VerificationFile(c *gin.Context)
}

// FileResolver maps a recorded file name to a path on disk.
type FileResolver interface {
	Resolve(name string) (string, error)
}

type AdminHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	// Verifications resolves identity documents in the private store.
	Verifications FileResolver
	Logger        *slog.Logger
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

type suspendUserRequest struct {
	Until  *time.Time `json:"until"`
	Reason string     `json:"reason"`
}

type staffRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type providerRequest struct {
	Type  string `json:"type"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

func (h AdminHandler) Dashboard(c *gin.Context) {
	if _, ok := requireRole(c, domainuser.RoleAdmin); !ok {
		return
	}
	result, err := queries.Ask[adminapp.DashboardQuery, dto.AdminDashboard](c.Request.Context(), h.Queries, adminapp.DashboardQuery{})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h AdminHandler) ApproveListing(c *gin.Context) {
	admin, id, ok := h.listingTarget(c)
	if !ok {
		return
	}
	h.moderate(c, func() (dto.Listing, error) {
		return commands.Dispatch[adminapp.ApproveListingCommand, dto.Listing](c.Request.Context(), h.Commands, adminapp.ApproveListingCommand{AdminID: admin, ListingID: id})
	})
}

func (h AdminHandler) RejectListing(c *gin.Context) {
	admin, id, ok := h.listingTarget(c)
	if !ok {
		return
	}
	var req reasonRequest
	_ = c.ShouldBindJSON(&req)
	h.moderate(c, func() (dto.Listing, error) {
		return commands.Dispatch[adminapp.RejectListingCommand, dto.Listing](c.Request.Context(), h.Commands, adminapp.RejectListingCommand{AdminID: admin, ListingID: id, Reason: req.Reason})
	})
}

func (h AdminHandler) SuspendListing(c *gin.Context) {
	admin, id, ok := h.listingTarget(c)
	if !ok {
		return
	}
	var req reasonRequest
	_ = c.ShouldBindJSON(&req)
	h.moderate(c, func() (dto.Listing, error) {
		return commands.Dispatch[adminapp.SuspendListingCommand, dto.Listing](c.Request.Context(), h.Commands, adminapp.SuspendListingCommand{AdminID: admin, ListingID: id, Reason: req.Reason})
	})
}

func (h AdminHandler) ReactivateListing(c *gin.Context) {
	admin, id, ok := h.listingTarget(c)
	if !ok {
		return
	}
	h.moderate(c, func() (dto.Listing, error) {
		return commands.Dispatch[adminapp.ReactivateListingCommand, dto.Listing](c.Request.Context(), h.Commands, adminapp.ReactivateListingCommand{AdminID: admin, ListingID: id})
	})
}

func (h AdminHandler) DeleteListing(c *gin.Context) {
	admin, id, ok := h.listingTarget(c)
	if !ok {
		return
	}
	result, err := commands.Dispatch[adminapp.DeleteListingCommand, adminapp.DeletedListing](c.Request.Context(), h.Commands, adminapp.DeleteListingCommand{AdminID: admin, ListingID: id})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "listing_id": int64(result.ListingID)})
}

func (h AdminHandler) Users(c *gin.Context) {
	if _, ok := requireRole(c, domainuser.RoleAdmin); !ok {
		return
	}
	result, err := queries.Ask[adminapp.ListUsersQuery, dto.UserList](c.Request.Context(), h.Queries, adminapp.ListUsersQuery{})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h AdminHandler) SuspendUser(c *gin.Context) {
	admin, userID, ok := h.userTarget(c)
	if !ok {
		return
	}
	var req suspendUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	result, err := commands.Dispatch[adminapp.SuspendUserCommand, dto.UserProfile](c.Request.Context(), h.Commands, adminapp.SuspendUserCommand{
		AdminID: admin,
		UserID:  userID,
		Until:   req.Until,
		Reason:  req.Reason,
	})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h AdminHandler) ReactivateUser(c *gin.Context) {
	admin, userID, ok := h.userTarget(c)
	if !ok {
		return
	}
	result, err := commands.Dispatch[adminapp.ReactivateUserCommand, dto.UserProfile](c.Request.Context(), h.Commands, adminapp.ReactivateUserCommand{AdminID: admin, UserID: userID})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h AdminHandler) DeleteUser(c *gin.Context) {
	admin, userID, ok := h.userTarget(c)
	if !ok {
		return
	}
	_, err := commands.Dispatch[adminapp.DeleteUserCommand, struct{}](c.Request.Context(), h.Commands, adminapp.DeleteUserCommand{AdminID: admin, UserID: userID})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h AdminHandler) CreateStaff(c *gin.Context) {
	admin, ok := requireRole(c, domainuser.RoleAdmin)
	if !ok {
		return
	}
	var req staffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	result, err := commands.Dispatch[adminapp.CreateStaffCommand, dto.UserProfile](c.Request.Context(), h.Commands, adminapp.CreateStaffCommand{
		AdminID:  admin.UserID,
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
	})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h AdminHandler) AddProvider(c *gin.Context) {
	admin, ok := requireRole(c, domainuser.RoleAdmin)
	if !ok {
		return
	}
	var req providerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	result, err := commands.Dispatch[adminapp.AddProviderCommand, dto.Provider](c.Request.Context(), h.Commands, adminapp.AddProviderCommand{
		AdminID: admin.UserID,
		Type:    req.Type,
		Name:    req.Name,
		Phone:   req.Phone,
	})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// VerificationFile streams a selfie or id card; the stored name is resolved
// strictly inside the private root.
func (h AdminHandler) VerificationFile(c *gin.Context) {
	if _, ok := requireRole(c, domainuser.RoleAdmin); !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if h.Verifications == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "verification storage unavailable"})
		return
	}
	name, err := queries.Ask[adminapp.VerificationDocumentQuery, string](c.Request.Context(), h.Queries, adminapp.VerificationDocumentQuery{
		VerificationID: domainverification.ID(id),
		Document:       c.Param("document"),
	})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	full, err := h.Verifications.Resolve(name)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.Header("Cache-Control", "private, no-store")
	c.File(full)
}

func (h AdminHandler) listingTarget(c *gin.Context) (domainuser.ID, domainlistings.ID, bool) {
	admin, ok := requireRole(c, domainuser.RoleAdmin)
	if !ok {
		return 0, 0, false
	}
	id, ok := paramID(c, "id")
	if !ok {
		return 0, 0, false
	}
	return admin.UserID, domainlistings.ID(id), true
}

func (h AdminHandler) userTarget(c *gin.Context) (domainuser.ID, domainuser.ID, bool) {
	admin, ok := requireRole(c, domainuser.RoleAdmin)
	if !ok {
		return 0, 0, false
	}
	id, ok := paramID(c, "id")
	if !ok {
		return 0, 0, false
	}
	return admin.UserID, domainuser.ID(id), true
}

func (h AdminHandler) moderate(c *gin.Context, run func() (dto.Listing, error)) {
	listing, err := run()
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

var _ AdminHTTP = AdminHandler{}
