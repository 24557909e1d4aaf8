package mongo

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainchat "skillswap/internal/domain/chat"
	domainlistings "skillswap/internal/domain/listings"
	domainmeeting "skillswap/internal/domain/meeting"
	domainnotification "skillswap/internal/domain/notification"
	domainswap "skillswap/internal/domain/swap"
	domainuser "skillswap/internal/domain/user"
)

type userRepo struct{ col *mongo.Collection }

type userDocument struct {
	ID           string    `bson:"_id"`
	Username     string    `bson:"username"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"password_hash"`
	Roles        []string  `bson:"roles"`
	Public       bool      `bson:"public"`
	Active       bool      `bson:"active"`
	Banned       bool      `bson:"banned"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

func (r userRepo) ByID(ctx context.Context, id domainuser.ID) (*domainuser.User, error) {
	return r.findOne(ctx, bson.M{"_id": string(id)})
}

func (r userRepo) ByUsername(ctx context.Context, username string) (*domainuser.User, error) {
	return r.findOne(ctx, bson.M{"username": domainuser.NormalizeUsername(username)})
}

func (r userRepo) findOne(ctx context.Context, filter bson.M) (*domainuser.User, error) {
	var doc userDocument
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainuser.ErrNotFound
		}
		return nil, err
	}
	u := &domainuser.User{
		ID:           domainuser.ID(doc.ID),
		Username:     doc.Username,
		Email:        doc.Email,
		PasswordHash: doc.PasswordHash,
		Public:       doc.Public,
		Active:       doc.Active,
		Banned:       doc.Banned,
		CreatedAt:    doc.CreatedAt.UTC(),
		UpdatedAt:    doc.UpdatedAt.UTC(),
	}
	for _, role := range doc.Roles {
		u.Roles = append(u.Roles, domainuser.Role(role))
	}
	return u, nil
}

func (r userRepo) Save(ctx context.Context, user *domainuser.User) error {
	if strings.TrimSpace(string(user.ID)) == "" {
		return domainuser.ErrIDRequired
	}
	doc := userDocument{
		ID:           string(user.ID),
		Username:     domainuser.NormalizeUsername(user.Username),
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		Public:       user.Public,
		Active:       user.Active,
		Banned:       user.Banned,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
	for _, role := range user.Roles {
		doc.Roles = append(doc.Roles, string(role))
	}
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		return domainuser.ErrUsernameTaken
	}
	return mapWriteError(err)
}

type listingRepo struct{ col *mongo.Collection }

type listingDocument struct {
	ID          string    `bson:"_id"`
	OwnerID     string    `bson:"owner_id"`
	Name        string    `bson:"name"`
	NameKey     string    `bson:"name_key"`
	Direction   string    `bson:"direction"`
	Description string    `bson:"description"`
	Active      bool      `bson:"active"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

func (d listingDocument) toAggregate() *domainlistings.Listing {
	return &domainlistings.Listing{
		ID:          domainlistings.ListingID(d.ID),
		OwnerID:     d.OwnerID,
		Name:        d.Name,
		Direction:   domainlistings.Direction(d.Direction),
		Description: d.Description,
		Active:      d.Active,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
}

func (r listingRepo) ByID(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	return r.findOne(ctx, bson.M{"_id": string(id)})
}

func (r listingRepo) FindByOwnerName(ctx context.Context, ownerID, name string, direction domainlistings.Direction) (*domainlistings.Listing, error) {
	return r.findOne(ctx, bson.M{"owner_id": ownerID, "direction": string(direction), "name_key": nameKey(name)})
}

func (r listingRepo) findOne(ctx context.Context, filter bson.M) (*domainlistings.Listing, error) {
	var doc listingDocument
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainlistings.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r listingRepo) Search(ctx context.Context, params domainlistings.SearchParams) ([]*domainlistings.Listing, error) {
	opts := params.Normalized()
	filter := bson.M{}
	if opts.OnlyActive {
		filter["active"] = true
	}
	if opts.OwnerID != "" {
		filter["owner_id"] = opts.OwnerID
	}
	if opts.Direction != "" {
		filter["direction"] = string(opts.Direction)
	}
	if opts.NameLike != "" {
		filter["name_key"] = bson.M{"$regex": regexp.QuoteMeta(opts.NameLike)}
	}
	findOpts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(opts.Limit))
	cur, err := r.col.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, err
	}
	var docs []listingDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*domainlistings.Listing, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.toAggregate())
	}
	return out, nil
}

func (r listingRepo) Save(ctx context.Context, l *domainlistings.Listing) error {
	doc := listingDocument{
		ID:          string(l.ID),
		OwnerID:     l.OwnerID,
		Name:        l.Name,
		NameKey:     nameKey(l.Name),
		Direction:   string(l.Direction),
		Description: l.Description,
		Active:      l.Active,
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
	}
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		return domainlistings.ErrDuplicate
	}
	return mapWriteError(err)
}

func (r listingRepo) Delete(ctx context.Context, id domainlistings.ListingID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": string(id)})
	if err != nil {
		return mapWriteError(err)
	}
	if res.DeletedCount == 0 {
		return domainlistings.ErrNotFound
	}
	return nil
}

func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

type swapRepo struct{ db *mongo.Database }

type swapDocument struct {
	ID                 string     `bson:"_id"`
	RequesterID        string     `bson:"requester_id"`
	ReceiverID         string     `bson:"receiver_id"`
	OfferedListingID   string     `bson:"offered_listing_id"`
	RequestedListingID string     `bson:"requested_listing_id"`
	OfferedSkill       string     `bson:"offered_skill"`
	RequestedSkill     string     `bson:"requested_skill"`
	Message            string     `bson:"message"`
	Status             string     `bson:"status"`
	CreatedAt          time.Time  `bson:"created_at"`
	UpdatedAt          time.Time  `bson:"updated_at"`
	RespondedAt        *time.Time `bson:"responded_at,omitempty"`
	CompletedAt        *time.Time `bson:"completed_at,omitempty"`
	Version            int64      `bson:"version"`
}

func newSwapDocument(s *domainswap.Swap) swapDocument {
	return swapDocument{
		ID:                 string(s.ID),
		RequesterID:        s.RequesterID,
		ReceiverID:         s.ReceiverID,
		OfferedListingID:   string(s.OfferedListingID),
		RequestedListingID: string(s.RequestedListingID),
		OfferedSkill:       s.OfferedSkill,
		RequestedSkill:     s.RequestedSkill,
		Message:            s.Message,
		Status:             string(s.Status),
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.UpdatedAt,
		RespondedAt:        s.RespondedAt,
		CompletedAt:        s.CompletedAt,
		Version:            s.Version,
	}
}

func (d swapDocument) toAggregate() *domainswap.Swap {
	return &domainswap.Swap{
		ID:                 domainswap.SwapID(d.ID),
		RequesterID:        d.RequesterID,
		ReceiverID:         d.ReceiverID,
		OfferedListingID:   domainlistings.ListingID(d.OfferedListingID),
		RequestedListingID: domainlistings.ListingID(d.RequestedListingID),
		OfferedSkill:       d.OfferedSkill,
		RequestedSkill:     d.RequestedSkill,
		Message:            d.Message,
		Status:             domainswap.Status(d.Status),
		CreatedAt:          d.CreatedAt.UTC(),
		UpdatedAt:          d.UpdatedAt.UTC(),
		RespondedAt:        utcPtr(d.RespondedAt),
		CompletedAt:        utcPtr(d.CompletedAt),
		Version:            d.Version,
	}
}

func (r swapRepo) col() *mongo.Collection { return r.db.Collection(colSwaps) }

func (r swapRepo) ByID(ctx context.Context, id domainswap.SwapID) (*domainswap.Swap, error) {
	return r.findOne(ctx, bson.M{"_id": string(id)})
}

func (r swapRepo) FindByKey(ctx context.Context, key domainswap.Key) (*domainswap.Swap, error) {
	return r.findOne(ctx, bson.M{
		"requester_id":         key.RequesterID,
		"receiver_id":          key.ReceiverID,
		"offered_listing_id":   string(key.OfferedListingID),
		"requested_listing_id": string(key.RequestedListingID),
	})
}

func (r swapRepo) findOne(ctx context.Context, filter bson.M) (*domainswap.Swap, error) {
	var doc swapDocument
	if err := r.col().FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainswap.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r swapRepo) ListByParticipant(ctx context.Context, params domainswap.ListParams) ([]*domainswap.Swap, error) {
	var filter bson.M
	switch params.Role {
	case domainswap.RoleRequester:
		filter = bson.M{"requester_id": params.UserID}
	case domainswap.RoleReceiver:
		filter = bson.M{"receiver_id": params.UserID}
	default:
		filter = bson.M{"$or": bson.A{bson.M{"requester_id": params.UserID}, bson.M{"receiver_id": params.UserID}}}
	}
	if params.Status != "" {
		filter["status"] = string(params.Status)
	}
	cur, err := r.col().Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}))
	if err != nil {
		return nil, err
	}
	var docs []swapDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*domainswap.Swap, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.toAggregate())
	}
	return out, nil
}

// Save is a versioned upsert: a stale version either matches nothing or
// collides with the existing _id, and both read as a concurrent update.
func (r swapRepo) Save(ctx context.Context, s *domainswap.Swap) error {
	doc := newSwapDocument(s)
	filter := bson.M{"_id": doc.ID, "version": s.Version}
	doc.Version = s.Version + 1
	res, err := r.col().UpdateOne(ctx, filter, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			if strings.Contains(err.Error(), swapKeyIndex) {
				return domainswap.ErrDuplicate
			}
			return ErrConcurrentUpdate
		}
		return mapWriteError(err)
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return ErrConcurrentUpdate
	}
	s.Version = doc.Version
	return nil
}

// Delete removes the swap with its chat, messages, meetings and ratings.
func (r swapRepo) Delete(ctx context.Context, id domainswap.SwapID) error {
	var chat chatDocument
	err := r.db.Collection(colChats).FindOne(ctx, bson.M{"swap_id": string(id)}).Decode(&chat)
	switch {
	case err == nil:
		if _, err := r.db.Collection(colMessages).DeleteMany(ctx, bson.M{"chat_id": chat.ID}); err != nil {
			return mapWriteError(err)
		}
		if _, err := r.db.Collection(colMeetings).DeleteMany(ctx, bson.M{"chat_id": chat.ID}); err != nil {
			return mapWriteError(err)
		}
		if _, err := r.db.Collection(colChats).DeleteOne(ctx, bson.M{"_id": chat.ID}); err != nil {
			return mapWriteError(err)
		}
	case !errors.Is(err, mongo.ErrNoDocuments):
		return err
	}
	if _, err := r.db.Collection(colRatings).DeleteMany(ctx, bson.M{"swap_id": string(id)}); err != nil {
		return mapWriteError(err)
	}
	res, err := r.col().DeleteOne(ctx, bson.M{"_id": string(id)})
	if err != nil {
		return mapWriteError(err)
	}
	if res.DeletedCount == 0 {
		return domainswap.ErrNotFound
	}
	return nil
}

type chatRepo struct{ db *mongo.Database }

type chatDocument struct {
	ID        string    `bson:"_id"`
	SwapID    string    `bson:"swap_id"`
	CreatedAt time.Time `bson:"created_at"`
}

func (d chatDocument) toAggregate() *domainchat.Chat {
	return &domainchat.Chat{ID: domainchat.ChatID(d.ID), SwapID: domainswap.SwapID(d.SwapID), CreatedAt: d.CreatedAt.UTC()}
}

func (r chatRepo) col() *mongo.Collection { return r.db.Collection(colChats) }

func (r chatRepo) ByID(ctx context.Context, id domainchat.ChatID) (*domainchat.Chat, error) {
	return r.findOne(ctx, bson.M{"_id": string(id)})
}

func (r chatRepo) BySwap(ctx context.Context, swapID domainswap.SwapID) (*domainchat.Chat, error) {
	return r.findOne(ctx, bson.M{"swap_id": string(swapID)})
}

func (r chatRepo) findOne(ctx context.Context, filter bson.M) (*domainchat.Chat, error) {
	var doc chatDocument
	if err := r.col().FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainchat.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

// GetOrCreate upserts on swap_id with $setOnInsert, so a second caller gets
// the first caller's chat back.
func (r chatRepo) GetOrCreate(ctx context.Context, candidate *domainchat.Chat) (*domainchat.Chat, bool, error) {
	doc := chatDocument{ID: string(candidate.ID), SwapID: string(candidate.SwapID), CreatedAt: candidate.CreatedAt}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var stored chatDocument
	err := r.col().FindOneAndUpdate(ctx, bson.M{"swap_id": doc.SwapID}, bson.M{"$setOnInsert": doc}, opts).Decode(&stored)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, false, ErrConcurrentUpdate
		}
		return nil, false, mapWriteError(err)
	}
	return stored.toAggregate(), stored.ID == doc.ID, nil
}

func (r chatRepo) ListAccepted(ctx context.Context, userID string) ([]*domainchat.Chat, error) {
	swapFilter := bson.M{
		"status": string(domainswap.StatusAccepted),
		"$or":    bson.A{bson.M{"requester_id": userID}, bson.M{"receiver_id": userID}},
	}
	cur, err := r.db.Collection(colSwaps).Find(ctx, swapFilter, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	var swaps []struct {
		ID string `bson:"_id"`
	}
	if err := cur.All(ctx, &swaps); err != nil {
		return nil, err
	}
	if len(swaps) == 0 {
		return []*domainchat.Chat{}, nil
	}
	ids := make(bson.A, 0, len(swaps))
	for _, s := range swaps {
		ids = append(ids, s.ID)
	}
	cur, err = r.col().Find(ctx, bson.M{"swap_id": bson.M{"$in": ids}},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}))
	if err != nil {
		return nil, err
	}
	var docs []chatDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*domainchat.Chat, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.toAggregate())
	}
	return out, nil
}

type messageRepo struct{ db *mongo.Database }

type messageDocument struct {
	ID        string    `bson:"_id"`
	ChatID    string    `bson:"chat_id"`
	SenderID  string    `bson:"sender_id"`
	Kind      string    `bson:"kind"`
	Content   string    `bson:"content"`
	CreatedAt time.Time `bson:"created_at"`
	Seq       int64     `bson:"seq"`
}

func (d messageDocument) toAggregate() *domainchat.Message {
	return &domainchat.Message{
		ID:        domainchat.MessageID(d.ID),
		ChatID:    domainchat.ChatID(d.ChatID),
		SenderID:  d.SenderID,
		Kind:      domainchat.MessageKind(d.Kind),
		Content:   d.Content,
		CreatedAt: d.CreatedAt.UTC(),
		Seq:       d.Seq,
	}
}

func (r messageRepo) col() *mongo.Collection { return r.db.Collection(colMessages) }

// Append takes the next value of the global message counter inside the
// caller's transaction.
func (r messageRepo) Append(ctx context.Context, msg *domainchat.Message) error {
	if err := r.db.Collection(colChats).FindOne(ctx, bson.M{"_id": string(msg.ChatID)}).Err(); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domainchat.ErrNotFound
		}
		return err
	}
	var counter struct {
		Value int64 `bson:"value"`
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	err := r.db.Collection(colCounters).FindOneAndUpdate(ctx, bson.M{"_id": "chat_messages"}, bson.M{"$inc": bson.M{"value": 1}}, opts).Decode(&counter)
	if err != nil {
		return mapWriteError(err)
	}
	msg.Seq = counter.Value
	doc := messageDocument{
		ID:        string(msg.ID),
		ChatID:    string(msg.ChatID),
		SenderID:  msg.SenderID,
		Kind:      string(msg.Kind),
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt,
		Seq:       msg.Seq,
	}
	_, err = r.col().InsertOne(ctx, doc)
	return mapWriteError(err)
}

func (r messageRepo) List(ctx context.Context, chatID domainchat.ChatID, params domainchat.ListParams) ([]*domainchat.Message, error) {
	params = params.Normalized()
	filter := bson.M{"chat_id": string(chatID), "seq": bson.M{"$gt": params.AfterSeq}}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "seq", Value: 1}}).
		SetLimit(int64(params.Limit))
	cur, err := r.col().Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var docs []messageDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*domainchat.Message, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.toAggregate())
	}
	return out, nil
}

func (r messageRepo) Latest(ctx context.Context, chatID domainchat.ChatID) (*domainchat.Message, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "seq", Value: -1}})
	var doc messageDocument
	if err := r.col().FindOne(ctx, bson.M{"chat_id": string(chatID)}, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainchat.ErrNoMessages
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r messageRepo) Count(ctx context.Context, chatID domainchat.ChatID) (int, error) {
	n, err := r.col().CountDocuments(ctx, bson.M{"chat_id": string(chatID)})
	return int(n), err
}

type meetingRepo struct{ col *mongo.Collection }

type meetingDocument struct {
	ID              string     `bson:"_id"`
	ChatID          string     `bson:"chat_id"`
	OrganizerID     string     `bson:"organizer_id"`
	Type            string     `bson:"type"`
	Title           string     `bson:"title"`
	Description     string     `bson:"description"`
	ScheduledAt     *time.Time `bson:"scheduled_at,omitempty"`
	DurationMinutes int        `bson:"duration_minutes"`
	URL             string     `bson:"meeting_url"`
	RoomID          string     `bson:"meeting_room_id"`
	Status          string     `bson:"status"`
	CreatedAt       time.Time  `bson:"created_at"`
	UpdatedAt       time.Time  `bson:"updated_at"`
	StartedAt       *time.Time `bson:"started_at,omitempty"`
	EndedAt         *time.Time `bson:"ended_at,omitempty"`
	Version         int64      `bson:"version"`
}

func (d meetingDocument) toAggregate() *domainmeeting.Meeting {
	return &domainmeeting.Meeting{
		ID:              domainmeeting.MeetingID(d.ID),
		ChatID:          domainchat.ChatID(d.ChatID),
		OrganizerID:     d.OrganizerID,
		Type:            domainmeeting.Type(d.Type),
		Title:           d.Title,
		Description:     d.Description,
		ScheduledAt:     utcPtr(d.ScheduledAt),
		DurationMinutes: d.DurationMinutes,
		URL:             d.URL,
		RoomID:          d.RoomID,
		Status:          domainmeeting.Status(d.Status),
		CreatedAt:       d.CreatedAt.UTC(),
		UpdatedAt:       d.UpdatedAt.UTC(),
		StartedAt:       utcPtr(d.StartedAt),
		EndedAt:         utcPtr(d.EndedAt),
		Version:         d.Version,
	}
}

func (r meetingRepo) ByID(ctx context.Context, id domainmeeting.MeetingID) (*domainmeeting.Meeting, error) {
	var doc meetingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainmeeting.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r meetingRepo) ListByChat(ctx context.Context, chatID domainchat.ChatID) ([]*domainmeeting.Meeting, error) {
	cur, err := r.col.Find(ctx, bson.M{"chat_id": string(chatID)},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}))
	if err != nil {
		return nil, err
	}
	var docs []meetingDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*domainmeeting.Meeting, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.toAggregate())
	}
	return out, nil
}

func (r meetingRepo) Save(ctx context.Context, m *domainmeeting.Meeting) error {
	doc := meetingDocument{
		ID:              string(m.ID),
		ChatID:          string(m.ChatID),
		OrganizerID:     m.OrganizerID,
		Type:            string(m.Type),
		Title:           m.Title,
		Description:     m.Description,
		ScheduledAt:     m.ScheduledAt,
		DurationMinutes: m.DurationMinutes,
		URL:             m.URL,
		RoomID:          m.RoomID,
		Status:          string(m.Status),
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
		StartedAt:       m.StartedAt,
		EndedAt:         m.EndedAt,
		Version:         m.Version + 1,
	}
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": doc.ID, "version": m.Version}, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrConcurrentUpdate
		}
		return mapWriteError(err)
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return ErrConcurrentUpdate
	}
	m.Version = doc.Version
	return nil
}

type notificationRepo struct{ col *mongo.Collection }

type notificationDocument struct {
	ID          string     `bson:"_id"`
	RecipientID string     `bson:"recipient_id"`
	Kind        string     `bson:"kind"`
	Title       string     `bson:"title"`
	Body        string     `bson:"body"`
	RefID       string     `bson:"ref_id,omitempty"`
	Read        bool       `bson:"read"`
	CreatedAt   time.Time  `bson:"created_at"`
	ReadAt      *time.Time `bson:"read_at,omitempty"`
}

func (d notificationDocument) toAggregate() *domainnotification.Notification {
	return &domainnotification.Notification{
		ID:          domainnotification.NotificationID(d.ID),
		RecipientID: d.RecipientID,
		Kind:        domainnotification.Kind(d.Kind),
		Title:       d.Title,
		Body:        d.Body,
		RefID:       d.RefID,
		Read:        d.Read,
		CreatedAt:   d.CreatedAt.UTC(),
		ReadAt:      utcPtr(d.ReadAt),
	}
}

func (r notificationRepo) ByID(ctx context.Context, id domainnotification.NotificationID) (*domainnotification.Notification, error) {
	var doc notificationDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainnotification.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r notificationRepo) ListByRecipient(ctx context.Context, recipientID string, unreadOnly bool) ([]*domainnotification.Notification, error) {
	filter := bson.M{"recipient_id": recipientID}
	if unreadOnly {
		filter["read"] = false
	}
	cur, err := r.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}))
	if err != nil {
		return nil, err
	}
	var docs []notificationDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*domainnotification.Notification, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.toAggregate())
	}
	return out, nil
}

func (r notificationRepo) Save(ctx context.Context, n *domainnotification.Notification) error {
	doc := notificationDocument{
		ID:          string(n.ID),
		RecipientID: n.RecipientID,
		Kind:        string(n.Kind),
		Title:       n.Title,
		Body:        n.Body,
		RefID:       n.RefID,
		Read:        n.Read,
		CreatedAt:   n.CreatedAt,
		ReadAt:      n.ReadAt,
	}
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	return mapWriteError(err)
}

func (r notificationRepo) MarkAllRead(ctx context.Context, recipientID string, at time.Time) (int, error) {
	res, err := r.col.UpdateMany(ctx,
		bson.M{"recipient_id": recipientID, "read": false},
		bson.M{"$set": bson.M{"read": true, "read_at": at.UTC()}})
	if err != nil {
		return 0, mapWriteError(err)
	}
	return int(res.ModifiedCount), nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

var (
	_ domainuser.Repository         = userRepo{}
	_ domainlistings.Repository     = listingRepo{}
	_ domainswap.Repository         = swapRepo{}
	_ domainchat.Repository         = chatRepo{}
	_ domainchat.MessageRepository  = messageRepo{}
	_ domainmeeting.Repository      = meetingRepo{}
	_ domainnotification.Repository = notificationRepo{}
)
