package bootstrap

import (
	"log/slog"
	"time"

	"skillswap/internal/app/commands"
	"skillswap/internal/app/dto"
	chatapp "skillswap/internal/app/handlers/chats"
	dashboardapp "skillswap/internal/app/handlers/dashboard"
	listingapp "skillswap/internal/app/handlers/listings"
	meetingapp "skillswap/internal/app/handlers/meetings"
	notificationapp "skillswap/internal/app/handlers/notifications"
	ratingapp "skillswap/internal/app/handlers/ratings"
	"skillswap/internal/app/handlers/support"
	swapapp "skillswap/internal/app/handlers/swaps"
	userapp "skillswap/internal/app/handlers/users"
	"skillswap/internal/app/middleware"
	"skillswap/internal/app/outbox"
	"skillswap/internal/app/policies"
	"skillswap/internal/app/queries"
	"skillswap/internal/app/uow"
)

// Deps are the ports the application layer needs from infrastructure.
type Deps struct {
	UoWFactory    uow.UoWFactory
	Idempotency   middleware.IdempotencyStore
	Notifier      policies.Notifier
	Rooms         meetingapp.RoomAllocator
	Encoder       outbox.EventEncoder
	Clock         support.Clock
	Logger        *slog.Logger
	ConflictRetry int
	ConflictDelay time.Duration
}

// Buses are the middleware-wrapped entry points used by transports.
type Buses struct {
	Commands commands.Bus
	Queries  queries.Bus
}

// Build registers every handler and wraps the buses in the standard
// middleware chain.
func Build(d Deps) Buses {
	if d.Encoder == nil {
		d.Encoder = outbox.JSONEventEncoder{}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.ConflictRetry <= 0 {
		d.ConflictRetry = 3
	}

	commandBus := commands.NewInMemoryBus()
	queryBus := queries.NewInMemoryBus()
	RegisterCommands(commandBus, d)
	RegisterQueries(queryBus, d)

	authz := middleware.ActorRequired{}
	validator := middleware.MessageValidator{}
	return Buses{
		Commands: middleware.Chain[commands.Bus](
			commandBus,
			middleware.Authorization(authz),
			middleware.Validation(validator),
			middleware.RetryOnConflict(d.ConflictRetry, d.ConflictDelay, d.Logger),
			middleware.Notifications(d.Notifier, d.Logger),
			middleware.Idempotency(d.Idempotency, nil),
			middleware.Transaction(d.UoWFactory, nil),
		),
		Queries: middleware.Chain[queries.Bus](
			queryBus,
			middleware.QueryAuthorization(authz),
			middleware.QueryValidation(validator),
		),
	}
}

func RegisterCommands(bus *commands.InMemoryBus, d Deps) {
	commands.RegisterHandler[swapapp.ProposeSwapCommand, *dto.Swap](bus, swapapp.ProposeSwapCommand{}.Key(), &swapapp.ProposeSwapHandler{
		UoWFactory: d.UoWFactory, Encoder: d.Encoder, Clock: d.Clock, Logger: d.Logger,
	})
	commands.RegisterHandler[swapapp.AcceptSwapCommand, *swapapp.AcceptSwapResult](bus, swapapp.AcceptSwapCommand{}.Key(), &swapapp.AcceptSwapHandler{
		UoWFactory: d.UoWFactory, Encoder: d.Encoder, Clock: d.Clock, Logger: d.Logger,
	})
	commands.RegisterHandler[swapapp.RejectSwapCommand, *dto.Swap](bus, swapapp.RejectSwapCommand{}.Key(), &swapapp.RejectSwapHandler{
		UoWFactory: d.UoWFactory, Encoder: d.Encoder, Clock: d.Clock,
	})
	commands.RegisterHandler[swapapp.CancelSwapCommand, *dto.Swap](bus, swapapp.CancelSwapCommand{}.Key(), &swapapp.CancelSwapHandler{
		UoWFactory: d.UoWFactory, Encoder: d.Encoder, Clock: d.Clock,
	})
	commands.RegisterHandler[swapapp.CompleteSwapCommand, *dto.Swap](bus, swapapp.CompleteSwapCommand{}.Key(), &swapapp.CompleteSwapHandler{
		UoWFactory: d.UoWFactory, Encoder: d.Encoder, Clock: d.Clock, Logger: d.Logger,
	})
	commands.RegisterHandler[swapapp.PurgeSwapCommand, struct{}](bus, swapapp.PurgeSwapCommand{}.Key(), &swapapp.PurgeSwapHandler{
		UoWFactory: d.UoWFactory, Logger: d.Logger,
	})

	commands.RegisterHandler[chatapp.PostMessageCommand, *dto.ChatMessage](bus, chatapp.PostMessageCommand{}.Key(), &chatapp.PostMessageHandler{
		UoWFactory: d.UoWFactory, Clock: d.Clock,
	})

	commands.RegisterHandler[meetingapp.CreateMeetingCommand, *dto.Meeting](bus, meetingapp.CreateMeetingCommand{}.Key(), &meetingapp.CreateMeetingHandler{
		UoWFactory: d.UoWFactory, Rooms: d.Rooms, Encoder: d.Encoder, Clock: d.Clock, Logger: d.Logger,
	})
	commands.RegisterHandler[meetingapp.StartMeetingCommand, *dto.Meeting](bus, meetingapp.StartMeetingCommand{}.Key(), &meetingapp.StartMeetingHandler{
		UoWFactory: d.UoWFactory, Encoder: d.Encoder, Clock: d.Clock,
	})
	commands.RegisterHandler[meetingapp.EndMeetingCommand, *dto.Meeting](bus, meetingapp.EndMeetingCommand{}.Key(), &meetingapp.EndMeetingHandler{
		UoWFactory: d.UoWFactory, Encoder: d.Encoder, Clock: d.Clock,
	})
	commands.RegisterHandler[meetingapp.CancelMeetingCommand, *dto.Meeting](bus, meetingapp.CancelMeetingCommand{}.Key(), &meetingapp.CancelMeetingHandler{
		UoWFactory: d.UoWFactory, Encoder: d.Encoder, Clock: d.Clock,
	})

	commands.RegisterHandler[notificationapp.MarkReadCommand, *dto.Notification](bus, notificationapp.MarkReadCommand{}.Key(), &notificationapp.MarkReadHandler{
		UoWFactory: d.UoWFactory, Clock: d.Clock,
	})
	commands.RegisterHandler[notificationapp.MarkAllReadCommand, notificationapp.MarkAllReadResult](bus, notificationapp.MarkAllReadCommand{}.Key(), &notificationapp.MarkAllReadHandler{
		UoWFactory: d.UoWFactory, Clock: d.Clock,
	})

	commands.RegisterHandler[listingapp.CreateListingCommand, *dto.Listing](bus, listingapp.CreateListingCommand{}.Key(), &listingapp.CreateListingHandler{
		UoWFactory: d.UoWFactory, Encoder: d.Encoder, Clock: d.Clock, Logger: d.Logger,
	})
	commands.RegisterHandler[listingapp.DeleteListingCommand, struct{}](bus, listingapp.DeleteListingCommand{}.Key(), &listingapp.DeleteListingHandler{
		UoWFactory: d.UoWFactory, Encoder: d.Encoder, Clock: d.Clock,
	})

	commands.RegisterHandler[ratingapp.RateSwapCommand, *dto.Rating](bus, ratingapp.RateSwapCommand{}.Key(), &ratingapp.RateSwapHandler{
		UoWFactory: d.UoWFactory, Encoder: d.Encoder, Clock: d.Clock, Logger: d.Logger,
	})

	commands.RegisterHandler[userapp.SetBanCommand, *dto.UserProfile](bus, userapp.SetBanCommand{}.Key(), &userapp.SetBanHandler{
		UoWFactory: d.UoWFactory, Clock: d.Clock, Logger: d.Logger,
	})
	commands.RegisterHandler[userapp.UpdateProfileCommand, *dto.UserProfile](bus, userapp.UpdateProfileCommand{}.Key(), &userapp.UpdateProfileHandler{
		UoWFactory: d.UoWFactory, Clock: d.Clock,
	})
}

func RegisterQueries(bus *queries.InMemoryBus, d Deps) {
	queries.RegisterHandler[swapapp.GetSwapQuery, dto.Swap](bus, swapapp.GetSwapQuery{}.Key(), &swapapp.GetSwapHandler{UoWFactory: d.UoWFactory})
	queries.RegisterHandler[swapapp.ListMySwapsQuery, dto.SwapCollection](bus, swapapp.ListMySwapsQuery{}.Key(), &swapapp.ListMySwapsHandler{UoWFactory: d.UoWFactory})
	queries.RegisterHandler[chatapp.ListMyChatsQuery, dto.ConversationList](bus, chatapp.ListMyChatsQuery{}.Key(), &chatapp.ListMyChatsHandler{UoWFactory: d.UoWFactory})
	queries.RegisterHandler[chatapp.GetChatQuery, dto.Conversation](bus, chatapp.GetChatQuery{}.Key(), &chatapp.GetChatHandler{UoWFactory: d.UoWFactory})
	queries.RegisterHandler[chatapp.ListMessagesQuery, dto.ChatMessageList](bus, chatapp.ListMessagesQuery{}.Key(), &chatapp.ListMessagesHandler{UoWFactory: d.UoWFactory})
	queries.RegisterHandler[meetingapp.JoinMeetingQuery, dto.MeetingJoin](bus, meetingapp.JoinMeetingQuery{}.Key(), &meetingapp.JoinMeetingHandler{UoWFactory: d.UoWFactory})
	queries.RegisterHandler[meetingapp.ListMeetingsQuery, dto.MeetingCollection](bus, meetingapp.ListMeetingsQuery{}.Key(), &meetingapp.ListMeetingsHandler{UoWFactory: d.UoWFactory})
	queries.RegisterHandler[notificationapp.ListNotificationsQuery, dto.NotificationCollection](bus, notificationapp.ListNotificationsQuery{}.Key(), &notificationapp.ListNotificationsHandler{UoWFactory: d.UoWFactory})
	queries.RegisterHandler[listingapp.SearchListingsQuery, dto.ListingCollection](bus, listingapp.SearchListingsQuery{}.Key(), &listingapp.SearchListingsHandler{UoWFactory: d.UoWFactory})
	queries.RegisterHandler[ratingapp.ListRatingsQuery, dto.RatingCollection](bus, ratingapp.ListRatingsQuery{}.Key(), &ratingapp.ListRatingsHandler{UoWFactory: d.UoWFactory})
	queries.RegisterHandler[dashboardapp.UserDashboardQuery, dto.Dashboard](bus, dashboardapp.UserDashboardQuery{}.Key(), &dashboardapp.UserDashboardHandler{UoWFactory: d.UoWFactory, Clock: d.Clock})
	queries.RegisterHandler[dashboardapp.PlatformDashboardQuery, dto.PlatformDashboard](bus, dashboardapp.PlatformDashboardQuery{}.Key(), &dashboardapp.PlatformDashboardHandler{UoWFactory: d.UoWFactory, Clock: d.Clock})
}
