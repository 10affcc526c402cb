package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	adminapp "padicrib/internal/app/handlers/admin"
	listingapp "padicrib/internal/app/handlers/listings"
	paymentapp "padicrib/internal/app/handlers/payments"
	"padicrib/internal/app/middleware"
	"padicrib/internal/app/policies"
	"padicrib/internal/app/services/auth"
	"padicrib/internal/app/validation"
	domainbooking "padicrib/internal/domain/booking"
	domainfees "padicrib/internal/domain/fees"
	domainlistings "padicrib/internal/domain/listings"
	domainmessaging "padicrib/internal/domain/messaging"
	domainproviders "padicrib/internal/domain/providers"
	domainreviews "padicrib/internal/domain/reviews"
	"padicrib/internal/domain/shared/money"
	domainuser "padicrib/internal/domain/user"
	domainverification "padicrib/internal/domain/verification"
	"padicrib/internal/infra/obs"
	"padicrib/internal/infra/storage/files"
)

var statusTable = []struct {
	status int
	errs   []error
}{
	{http.StatusUnauthorized, []error{
		middleware.ErrUnauthenticated,
		auth.ErrInvalidCredentials,
		auth.ErrTokenRequired,
		auth.ErrInvalidToken,
	}},
	{http.StatusForbidden, []error{
		middleware.ErrForbidden,
		files.ErrPathEscape,
		domainuser.ErrSuspended,
		domainuser.ErrProtectedAccount,
		domainlistings.ErrNotOwner,
		domainbooking.ErrNotBooker,
		domainmessaging.ErrNotMember,
		adminapp.ErrSelfAction,
		paymentapp.ErrStubDisabled,
	}},
	{http.StatusNotFound, []error{
		domainuser.ErrNotFound,
		domainlistings.ErrNotFound,
		domainlistings.ErrImageNotFound,
		domainverification.ErrNotFound,
		domainfees.ErrNotFound,
		domainbooking.ErrNotFound,
		domainreviews.ErrNotFound,
		domainmessaging.ErrNotFound,
		domainproviders.ErrNotFound,
		files.ErrNotFound,
	}},
	{http.StatusConflict, []error{
		domainlistings.ErrInvalidTransition,
		domainlistings.ErrFeeUnpaid,
		domainlistings.ErrNotBookable,
		domainlistings.ErrExpired,
		domainuser.ErrEmailAlreadyUsed,
		domainuser.ErrNotSuspended,
		domainuser.ErrOwnsListings,
		domainfees.ErrDuplicate,
		domainfees.ErrAlreadySettled,
		domainbooking.ErrAlreadyPaid,
	}},
	{http.StatusBadRequest, []error{
		validation.ErrInvalid,
		auth.ErrPasswordTooShort,
		domainuser.ErrEmailRequired,
		domainuser.ErrNameRequired,
		domainuser.ErrInvalidRole,
		domainlistings.ErrTitleRequired,
		domainlistings.ErrLocationRequired,
		domainlistings.ErrInvalidPrice,
		domainverification.ErrSelfieRequired,
		domainverification.ErrIDCardRequired,
		domainverification.ErrIDNumberMissing,
		domainverification.ErrUnknownDocument,
		domainfees.ErrReferenceNeeded,
		domainbooking.ErrListingRequired,
		domainbooking.ErrOwnListing,
		domainreviews.ErrInvalidRating,
		domainreviews.ErrEmptyComment,
		domainreviews.ErrNestedReply,
		domainreviews.ErrParentMismatch,
		domainmessaging.ErrSubjectRequired,
		domainmessaging.ErrBodyRequired,
		domainmessaging.ErrNoMembers,
		domainproviders.ErrNameRequired,
		domainproviders.ErrInvalidType,
		domainproviders.ErrTypeMismatch,
		listingapp.ErrNoImages,
		paymentapp.ErrReferenceMissing,
		money.ErrInvalidAmount,
		money.ErrInvalidCurrency,
		money.ErrCurrencyMismatch,
		ErrInvalidUpload,
	}},
	{http.StatusBadGateway, []error{policies.ErrGatewayFailure}},
	{http.StatusServiceUnavailable, []error{policies.ErrGatewayUnavailable}},
}

// statusFor maps application errors onto HTTP status codes.
func statusFor(err error) int {
	for _, row := range statusTable {
		for _, target := range row.errs {
			if errors.Is(err, target) {
				return row.status
			}
		}
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, logger *slog.Logger, err error) {
	status := statusFor(err)
	log := obs.RequestLogger(c, logger)
	if status >= http.StatusInternalServerError {
		if log != nil {
			log.ErrorContext(c.Request.Context(), "request failed", "error", err)
		}
		message := "internal error"
		if status != http.StatusInternalServerError {
			message = err.Error()
		}
		c.JSON(status, gin.H{"error": message})
		return
	}
	var verr *validation.Error
	if errors.As(err, &verr) {
		c.JSON(status, gin.H{"error": "validation failed", "fields": verr.Fields})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": message})
}
