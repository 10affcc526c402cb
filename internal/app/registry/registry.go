// Package registry assembles the command and query buses with their
// middleware pipelines.
package registry

import (
	"log/slog"
	"time"

	"padicrib/internal/app/commands"
	"padicrib/internal/app/dto"
	adminapp "padicrib/internal/app/handlers/admin"
	bookingapp "padicrib/internal/app/handlers/booking"
	expiryapp "padicrib/internal/app/handlers/expiry"
	listingapp "padicrib/internal/app/handlers/listings"
	messageapp "padicrib/internal/app/handlers/messages"
	paymentapp "padicrib/internal/app/handlers/payments"
	reviewapp "padicrib/internal/app/handlers/reviews"
	"padicrib/internal/app/middleware"
	"padicrib/internal/app/policies"
	"padicrib/internal/app/queries"
	"padicrib/internal/app/services/auth"
	"padicrib/internal/app/uow"
	"padicrib/internal/app/validation"
	domainuser "padicrib/internal/domain/user"
)

type Deps struct {
	UoW         uow.UoWFactory
	Idempotency middleware.IdempotencyStore
	Pricing     policies.Pricing
	Notifier    policies.Notifier
	Gateway     policies.PaymentGateway
	Passwords   auth.PasswordHasher
	// Images and Documents remove public images and private identity files.
	Images    policies.FileRemover
	Documents policies.FileRemover

	VerificationAdmin  domainuser.ID
	ListingCallbackURL string
	BookingCallbackURL string
	StubPayments       bool
	ReminderWindow     time.Duration
	Logger             *slog.Logger
	Now                func() time.Time
}

type Buses struct {
	Commands commands.Bus
	Queries  queries.Bus
	// Routes lists every registered command and query key.
	Routes []string
}

// Build registers every handler and wraps the buses as
// idempotency, validation, authorization, transaction, logging.
func Build(d Deps) Buses {
	commandBus := commands.NewInMemoryBus()
	queryBus := queries.NewInMemoryBus()

	registerListings(commandBus, queryBus, d)
	registerAdmin(commandBus, queryBus, d)
	registerBooking(commandBus, queryBus, d)
	registerPayments(commandBus, d)
	registerCommunity(commandBus, queryBus, d)

	commands.RegisterHandler(commandBus, expiryapp.SweepCommand{}.Key(), &expiryapp.SweepHandler{
		Notifier: d.Notifier,
		Window:   d.ReminderWindow,
		Logger:   d.Logger,
		Now:      d.Now,
	})

	v := validation.New()
	return Buses{
		Commands: middleware.ChainCommands(
			commandBus,
			middleware.Idempotency(d.Idempotency, nil),
			middleware.Validation(v),
			middleware.Authorization(middleware.RoleAuthorizer{}),
			middleware.Transaction(d.UoW, nil),
			middleware.Logging(d.Logger),
		),
		Queries: middleware.ChainQueries(
			queryBus,
			middleware.QueryValidation(v),
			middleware.QueryAuthorization(middleware.RoleAuthorizer{}),
		),
		Routes: append(commandBus.Keys(), queryBus.Keys()...),
	}
}

func registerListings(cb *commands.InMemoryBus, qb *queries.InMemoryBus, d Deps) {
	commands.RegisterHandler(cb, listingapp.CreateListingCommand{}.Key(), &listingapp.CreateListingHandler{
		Pricing:           d.Pricing,
		Notifier:          d.Notifier,
		VerificationAdmin: d.VerificationAdmin,
		Logger:            d.Logger,
		Now:               d.Now,
	})
	commands.RegisterHandler(cb, listingapp.AddImagesCommand{}.Key(), &listingapp.AddImagesHandler{Logger: d.Logger, Now: d.Now})
	commands.RegisterHandler(cb, listingapp.DeleteImageCommand{}.Key(), &listingapp.DeleteImageHandler{Files: d.Images, Logger: d.Logger})

	queries.RegisterHandler(qb, listingapp.SearchListingsQuery{}.Key(), &listingapp.SearchListingsHandler{UoWFactory: d.UoW, Logger: d.Logger})
	queries.RegisterHandler(qb, listingapp.GetListingQuery{}.Key(), &listingapp.GetListingHandler{UoWFactory: d.UoW})
	queries.RegisterHandler(qb, listingapp.OwnerDashboardQuery{}.Key(), &listingapp.OwnerDashboardHandler{UoWFactory: d.UoW})
	queries.RegisterHandler(qb, listingapp.FeePageQuery{}.Key(), &listingapp.FeePageHandler{UoWFactory: d.UoW, Pricing: d.Pricing})
}

func registerAdmin(cb *commands.InMemoryBus, qb *queries.InMemoryBus, d Deps) {
	moderation := &adminapp.ModerationHandler{Notifier: d.Notifier, Logger: d.Logger, Now: d.Now}
	commands.RegisterHandler(cb, adminapp.ApproveListingCommand{}.Key(), commands.HandlerFunc[adminapp.ApproveListingCommand, dto.Listing](moderation.Approve))
	commands.RegisterHandler(cb, adminapp.RejectListingCommand{}.Key(), commands.HandlerFunc[adminapp.RejectListingCommand, dto.Listing](moderation.Reject))
	commands.RegisterHandler(cb, adminapp.SuspendListingCommand{}.Key(), commands.HandlerFunc[adminapp.SuspendListingCommand, dto.Listing](moderation.Suspend))
	commands.RegisterHandler(cb, adminapp.ReactivateListingCommand{}.Key(), commands.HandlerFunc[adminapp.ReactivateListingCommand, dto.Listing](moderation.Reactivate))
	commands.RegisterHandler(cb, adminapp.DeleteListingCommand{}.Key(), &adminapp.DeleteListingHandler{
		Images:    d.Images,
		Documents: d.Documents,
		Notifier:  d.Notifier,
		Logger:    d.Logger,
		Now:       d.Now,
	})

	users := &adminapp.UsersHandler{Logger: d.Logger, Now: d.Now}
	commands.RegisterHandler(cb, adminapp.SuspendUserCommand{}.Key(), commands.HandlerFunc[adminapp.SuspendUserCommand, dto.UserProfile](users.Suspend))
	commands.RegisterHandler(cb, adminapp.ReactivateUserCommand{}.Key(), commands.HandlerFunc[adminapp.ReactivateUserCommand, dto.UserProfile](users.Reactivate))
	commands.RegisterHandler(cb, adminapp.DeleteUserCommand{}.Key(), commands.HandlerFunc[adminapp.DeleteUserCommand, struct{}](users.Delete))
	commands.RegisterHandler(cb, adminapp.CreateStaffCommand{}.Key(), &adminapp.CreateStaffHandler{Passwords: d.Passwords, Logger: d.Logger, Now: d.Now})
	commands.RegisterHandler(cb, adminapp.AddProviderCommand{}.Key(), &adminapp.AddProviderHandler{Logger: d.Logger, Now: d.Now})

	queries.RegisterHandler(qb, adminapp.DashboardQuery{}.Key(), &adminapp.DashboardHandler{UoWFactory: d.UoW})
	queries.RegisterHandler(qb, adminapp.ListUsersQuery{}.Key(), &adminapp.ListUsersHandler{UoWFactory: d.UoW})
	queries.RegisterHandler(qb, adminapp.VerificationDocumentQuery{}.Key(), &adminapp.VerificationDocumentHandler{UoWFactory: d.UoW})
}

func registerBooking(cb *commands.InMemoryBus, qb *queries.InMemoryBus, d Deps) {
	commands.RegisterHandler(cb, bookingapp.InitiateBookingCommand{}.Key(), &bookingapp.InitiateBookingHandler{Pricing: d.Pricing, Logger: d.Logger, Now: d.Now})
	queries.RegisterHandler(qb, bookingapp.CheckoutQuery{}.Key(), &bookingapp.CheckoutHandler{UoWFactory: d.UoW, Pricing: d.Pricing, Now: d.Now})
	queries.RegisterHandler(qb, bookingapp.MyBookingsQuery{}.Key(), &bookingapp.MyBookingsHandler{UoWFactory: d.UoW})
}

func registerPayments(cb *commands.InMemoryBus, d Deps) {
	reconciler := &paymentapp.Reconciler{UoW: d.UoW, Pricing: d.Pricing, Notifier: d.Notifier, Logger: d.Logger, Now: d.Now}
	commands.RegisterHandler(cb, paymentapp.InitiateListingPaymentCommand{}.Key(), &paymentapp.InitiateListingPaymentHandler{
		UoW:         d.UoW,
		Gateway:     d.Gateway,
		Pricing:     d.Pricing,
		CallbackURL: d.ListingCallbackURL,
		Logger:      d.Logger,
		Now:         d.Now,
	})
	commands.RegisterHandler(cb, paymentapp.ConfirmListingPaymentCommand{}.Key(), &paymentapp.ConfirmListingPaymentHandler{Gateway: d.Gateway, Reconciler: reconciler})
	commands.RegisterHandler(cb, paymentapp.StubListingPaymentCommand{}.Key(), &paymentapp.StubListingPaymentHandler{Enabled: d.StubPayments, Reconciler: reconciler})
	commands.RegisterHandler(cb, paymentapp.InitiateBookingPaymentCommand{}.Key(), &paymentapp.InitiateBookingPaymentHandler{
		UoW:         d.UoW,
		Gateway:     d.Gateway,
		CallbackURL: d.BookingCallbackURL,
		Logger:      d.Logger,
		Now:         d.Now,
	})
	commands.RegisterHandler(cb, paymentapp.VerifyBookingPaymentCommand{}.Key(), &paymentapp.VerifyBookingPaymentHandler{Gateway: d.Gateway, Reconciler: reconciler})
	commands.RegisterHandler(cb, paymentapp.ReconcileWebhookCommand{}.Key(), &paymentapp.ReconcileWebhookHandler{Reconciler: reconciler})
}

func registerCommunity(cb *commands.InMemoryBus, qb *queries.InMemoryBus, d Deps) {
	reviews := &reviewapp.Handler{Logger: d.Logger, Now: d.Now}
	commands.RegisterHandler(cb, reviewapp.SubmitReviewCommand{}.Key(), commands.HandlerFunc[reviewapp.SubmitReviewCommand, dto.Review](reviews.Submit))
	commands.RegisterHandler(cb, reviewapp.ReplyCommand{}.Key(), commands.HandlerFunc[reviewapp.ReplyCommand, dto.Review](reviews.Reply))
	queries.RegisterHandler(qb, reviewapp.ListReviewsQuery{}.Key(), &reviewapp.ListHandler{UoWFactory: d.UoW})

	messages := &messageapp.Handler{Logger: d.Logger, Now: d.Now}
	commands.RegisterHandler(cb, messageapp.StartConversationCommand{}.Key(), commands.HandlerFunc[messageapp.StartConversationCommand, dto.Thread](messages.Start))
	commands.RegisterHandler(cb, messageapp.PostMessageCommand{}.Key(), commands.HandlerFunc[messageapp.PostMessageCommand, dto.Message](messages.Post))
	queries.RegisterHandler(qb, messageapp.InboxQuery{}.Key(), &messageapp.InboxHandler{UoWFactory: d.UoW})
	queries.RegisterHandler(qb, messageapp.ThreadQuery{}.Key(), &messageapp.ThreadHandler{UoWFactory: d.UoW})
}
