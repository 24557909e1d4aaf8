package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"skillswap/internal/app/uow"
	domainchat "skillswap/internal/domain/chat"
	domainlistings "skillswap/internal/domain/listings"
	domainmeeting "skillswap/internal/domain/meeting"
	domainnotification "skillswap/internal/domain/notification"
	domainrating "skillswap/internal/domain/rating"
	domainswap "skillswap/internal/domain/swap"
	domainuser "skillswap/internal/domain/user"
)

type userRepo struct{ tx *sql.Tx }

const userColumns = `id, username, email, password_hash, roles, public, active, banned, created_at, updated_at`

func (r userRepo) ByID(ctx context.Context, id domainuser.ID) (*domainuser.User, error) {
	return scanUser(r.tx.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, string(id)))
}

func (r userRepo) ByUsername(ctx context.Context, username string) (*domainuser.User, error) {
	return scanUser(r.tx.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, domainuser.NormalizeUsername(username)))
}

func (r userRepo) Save(ctx context.Context, user *domainuser.User) error {
	if strings.TrimSpace(string(user.ID)) == "" {
		return domainuser.ErrIDRequired
	}
	roles := make([]string, 0, len(user.Roles))
	for _, role := range user.Roles {
		roles = append(roles, string(role))
	}
	_, err := r.tx.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			username = excluded.username,
			email = excluded.email,
			password_hash = excluded.password_hash,
			roles = excluded.roles,
			public = excluded.public,
			active = excluded.active,
			banned = excluded.banned,
			updated_at = excluded.updated_at`,
		string(user.ID), domainuser.NormalizeUsername(user.Username), user.Email, user.PasswordHash,
		strings.Join(roles, ","), boolInt(user.Public), boolInt(user.Active), boolInt(user.Banned),
		formatTime(user.CreatedAt), formatTime(user.UpdatedAt))
	if isUniqueViolation(err) {
		return domainuser.ErrUsernameTaken
	}
	return err
}

func scanUser(row scanner) (*domainuser.User, error) {
	var (
		u                domainuser.User
		id, roles        string
		public, active   int
		banned           int
		created, updated string
	)
	err := row.Scan(&id, &u.Username, &u.Email, &u.PasswordHash, &roles, &public, &active, &banned, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domainuser.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.ID = domainuser.ID(id)
	for _, role := range strings.Split(roles, ",") {
		if role != "" {
			u.Roles = append(u.Roles, domainuser.Role(role))
		}
	}
	u.Public, u.Active, u.Banned = public == 1, active == 1, banned == 1
	if u.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if u.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &u, nil
}

type listingRepo struct{ tx *sql.Tx }

const listingColumns = `id, owner_id, name, direction, description, active, created_at, updated_at`

func (r listingRepo) ByID(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	return scanListing(r.tx.QueryRowContext(ctx, `SELECT `+listingColumns+` FROM listings WHERE id = ?`, string(id)))
}

func (r listingRepo) FindByOwnerName(ctx context.Context, ownerID, name string, direction domainlistings.Direction) (*domainlistings.Listing, error) {
	return scanListing(r.tx.QueryRowContext(ctx,
		`SELECT `+listingColumns+` FROM listings WHERE owner_id = ? AND direction = ? AND name_key = ?`,
		ownerID, string(direction), nameKey(name)))
}

func (r listingRepo) Search(ctx context.Context, params domainlistings.SearchParams) ([]*domainlistings.Listing, error) {
	opts := params.Normalized()
	var (
		where []string
		args  []any
	)
	if opts.OnlyActive {
		where = append(where, "active = 1")
	}
	if opts.OwnerID != "" {
		where = append(where, "owner_id = ?")
		args = append(args, opts.OwnerID)
	}
	if opts.Direction != "" {
		where = append(where, "direction = ?")
		args = append(args, string(opts.Direction))
	}
	if opts.NameLike != "" {
		where = append(where, "instr(name_key, ?) > 0")
		args = append(args, opts.NameLike)
	}
	query := `SELECT ` + listingColumns + ` FROM listings`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id ASC LIMIT ?"
	args = append(args, opts.Limit)

	rows, err := r.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]*domainlistings.Listing, 0)
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r listingRepo) Save(ctx context.Context, l *domainlistings.Listing) error {
	_, err := r.tx.ExecContext(ctx, `
		INSERT INTO listings (id, owner_id, name, name_key, direction, description, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			name_key = excluded.name_key,
			description = excluded.description,
			active = excluded.active,
			updated_at = excluded.updated_at`,
		string(l.ID), l.OwnerID, l.Name, nameKey(l.Name), string(l.Direction), l.Description,
		boolInt(l.Active), formatTime(l.CreatedAt), formatTime(l.UpdatedAt))
	if isUniqueViolation(err) {
		return domainlistings.ErrDuplicate
	}
	return err
}

func (r listingRepo) Delete(ctx context.Context, id domainlistings.ListingID) error {
	res, err := r.tx.ExecContext(ctx, `DELETE FROM listings WHERE id = ?`, string(id))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domainlistings.ErrNotFound
	}
	return nil
}

func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func scanListing(row scanner) (*domainlistings.Listing, error) {
	var (
		l                domainlistings.Listing
		id, direction    string
		active           int
		created, updated string
	)
	err := row.Scan(&id, &l.OwnerID, &l.Name, &direction, &l.Description, &active, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domainlistings.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	l.ID = domainlistings.ListingID(id)
	l.Direction = domainlistings.Direction(direction)
	l.Active = active == 1
	if l.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if l.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &l, nil
}

type swapRepo struct{ tx *sql.Tx }

const swapColumns = `id, requester_id, receiver_id, offered_listing_id, requested_listing_id, offered_skill,
	requested_skill, message, status, created_at, updated_at, responded_at, completed_at, version`

func (r swapRepo) ByID(ctx context.Context, id domainswap.SwapID) (*domainswap.Swap, error) {
	return scanSwap(r.tx.QueryRowContext(ctx, `SELECT `+swapColumns+` FROM swaps WHERE id = ?`, string(id)))
}

func (r swapRepo) FindByKey(ctx context.Context, key domainswap.Key) (*domainswap.Swap, error) {
	return scanSwap(r.tx.QueryRowContext(ctx, `
		SELECT `+swapColumns+` FROM swaps
		WHERE requester_id = ? AND receiver_id = ? AND offered_listing_id = ? AND requested_listing_id = ?`,
		key.RequesterID, key.ReceiverID, string(key.OfferedListingID), string(key.RequestedListingID)))
}

func (r swapRepo) ListByParticipant(ctx context.Context, params domainswap.ListParams) ([]*domainswap.Swap, error) {
	var (
		where string
		args  []any
	)
	switch params.Role {
	case domainswap.RoleRequester:
		where, args = "requester_id = ?", []any{params.UserID}
	case domainswap.RoleReceiver:
		where, args = "receiver_id = ?", []any{params.UserID}
	default:
		where, args = "(requester_id = ? OR receiver_id = ?)", []any{params.UserID, params.UserID}
	}
	if params.Status != "" {
		where += " AND status = ?"
		args = append(args, string(params.Status))
	}
	rows, err := r.tx.QueryContext(ctx, `SELECT `+swapColumns+` FROM swaps WHERE `+where+` ORDER BY created_at DESC, id DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]*domainswap.Swap, 0)
	for rows.Next() {
		s, err := scanSwap(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Save inserts version 0 swaps and otherwise updates only when the stored
// version still matches.
func (r swapRepo) Save(ctx context.Context, s *domainswap.Swap) error {
	if s.Version == 0 {
		_, err := r.tx.ExecContext(ctx, `INSERT INTO swaps (`+swapColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`,
			string(s.ID), s.RequesterID, s.ReceiverID, string(s.OfferedListingID), string(s.RequestedListingID),
			s.OfferedSkill, s.RequestedSkill, s.Message, string(s.Status),
			formatTime(s.CreatedAt), formatTime(s.UpdatedAt), formatTimePtr(s.RespondedAt), formatTimePtr(s.CompletedAt))
		switch {
		case isUniqueViolation(err) && strings.Contains(err.Error(), "swaps.id"):
			return errConflict("swap", string(s.ID))
		case isUniqueViolation(err):
			return domainswap.ErrDuplicate
		case err != nil:
			return err
		}
		s.Version = 1
		return nil
	}
	res, err := r.tx.ExecContext(ctx, `
		UPDATE swaps SET status = ?, message = ?, updated_at = ?, responded_at = ?, completed_at = ?, version = version + 1
		WHERE id = ? AND version = ?`,
		string(s.Status), s.Message, formatTime(s.UpdatedAt), formatTimePtr(s.RespondedAt), formatTimePtr(s.CompletedAt),
		string(s.ID), s.Version)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errConflict("swap", string(s.ID))
	}
	s.Version++
	return nil
}

// Delete relies on ON DELETE CASCADE for the chat, messages and meetings.
func (r swapRepo) Delete(ctx context.Context, id domainswap.SwapID) error {
	res, err := r.tx.ExecContext(ctx, `DELETE FROM swaps WHERE id = ?`, string(id))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domainswap.ErrNotFound
	}
	return nil
}

func scanSwap(row scanner) (*domainswap.Swap, error) {
	var (
		s                        domainswap.Swap
		id, offered, requested   string
		status, created, updated string
		responded, completed     sql.NullString
	)
	err := row.Scan(&id, &s.RequesterID, &s.ReceiverID, &offered, &requested, &s.OfferedSkill, &s.RequestedSkill,
		&s.Message, &status, &created, &updated, &responded, &completed, &s.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domainswap.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	s.ID = domainswap.SwapID(id)
	s.OfferedListingID = domainlistings.ListingID(offered)
	s.RequestedListingID = domainlistings.ListingID(requested)
	s.Status = domainswap.Status(status)
	if s.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if s.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	if s.RespondedAt, err = parseTimePtr(responded); err != nil {
		return nil, err
	}
	if s.CompletedAt, err = parseTimePtr(completed); err != nil {
		return nil, err
	}
	return &s, nil
}

type chatRepo struct{ tx *sql.Tx }

func (r chatRepo) ByID(ctx context.Context, id domainchat.ChatID) (*domainchat.Chat, error) {
	return scanChat(r.tx.QueryRowContext(ctx, `SELECT id, swap_id, created_at FROM chats WHERE id = ?`, string(id)))
}

func (r chatRepo) BySwap(ctx context.Context, swapID domainswap.SwapID) (*domainchat.Chat, error) {
	return scanChat(r.tx.QueryRowContext(ctx, `SELECT id, swap_id, created_at FROM chats WHERE swap_id = ?`, string(swapID)))
}

// GetOrCreate leans on UNIQUE(swap_id): a losing insert is ignored and the
// winner's row is returned.
func (r chatRepo) GetOrCreate(ctx context.Context, candidate *domainchat.Chat) (*domainchat.Chat, bool, error) {
	res, err := r.tx.ExecContext(ctx, `INSERT INTO chats (id, swap_id, created_at) VALUES (?, ?, ?) ON CONFLICT(swap_id) DO NOTHING`,
		string(candidate.ID), string(candidate.SwapID), formatTime(candidate.CreatedAt))
	if err != nil {
		return nil, false, err
	}
	created, err := insertedOne(res)
	if err != nil {
		return nil, false, err
	}
	c, err := r.BySwap(ctx, candidate.SwapID)
	if err != nil {
		return nil, false, err
	}
	return c, created, nil
}

func (r chatRepo) ListAccepted(ctx context.Context, userID string) ([]*domainchat.Chat, error) {
	rows, err := r.tx.QueryContext(ctx, `
		SELECT c.id, c.swap_id, c.created_at FROM chats c
		JOIN swaps s ON s.id = c.swap_id
		WHERE s.status = ? AND (s.requester_id = ? OR s.receiver_id = ?)
		ORDER BY c.created_at DESC, c.id DESC`,
		string(domainswap.StatusAccepted), userID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]*domainchat.Chat, 0)
	for rows.Next() {
		c, err := scanChat(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanChat(row scanner) (*domainchat.Chat, error) {
	var id, swapID, created string
	err := row.Scan(&id, &swapID, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domainchat.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	at, err := parseTime(created)
	if err != nil {
		return nil, err
	}
	return &domainchat.Chat{ID: domainchat.ChatID(id), SwapID: domainswap.SwapID(swapID), CreatedAt: at}, nil
}

type messageRepo struct{ tx *sql.Tx }

const messageColumns = `seq, id, chat_id, sender_id, kind, content, created_at`

func (r messageRepo) Append(ctx context.Context, msg *domainchat.Message) error {
	res, err := r.tx.ExecContext(ctx, `INSERT INTO messages (id, chat_id, sender_id, kind, content, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		string(msg.ID), string(msg.ChatID), msg.SenderID, string(msg.Kind), msg.Content, formatTime(msg.CreatedAt))
	if err != nil {
		if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
			return domainchat.ErrNotFound
		}
		return err
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return err
	}
	msg.Seq = seq
	return nil
}

func (r messageRepo) List(ctx context.Context, chatID domainchat.ChatID, params domainchat.ListParams) ([]*domainchat.Message, error) {
	params = params.Normalized()
	rows, err := r.tx.QueryContext(ctx, `
		SELECT `+messageColumns+` FROM messages
		WHERE chat_id = ? AND seq > ?
		ORDER BY created_at ASC, seq ASC LIMIT ?`,
		string(chatID), params.AfterSeq, params.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]*domainchat.Message, 0)
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r messageRepo) Latest(ctx context.Context, chatID domainchat.ChatID) (*domainchat.Message, error) {
	m, err := scanMessage(r.tx.QueryRowContext(ctx, `
		SELECT `+messageColumns+` FROM messages WHERE chat_id = ?
		ORDER BY created_at DESC, seq DESC LIMIT 1`, string(chatID)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domainchat.ErrNoMessages
	}
	return m, err
}

func (r messageRepo) Count(ctx context.Context, chatID domainchat.ChatID) (int, error) {
	var n int
	err := r.tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages WHERE chat_id = ?`, string(chatID)).Scan(&n)
	return n, err
}

// scanMessage passes sql.ErrNoRows through; callers decide what absence means.
func scanMessage(row scanner) (*domainchat.Message, error) {
	var (
		m                         domainchat.Message
		id, chatID, kind, created string
	)
	if err := row.Scan(&m.Seq, &id, &chatID, &m.SenderID, &kind, &m.Content, &created); err != nil {
		return nil, err
	}
	m.ID = domainchat.MessageID(id)
	m.ChatID = domainchat.ChatID(chatID)
	m.Kind = domainchat.MessageKind(kind)
	at, err := parseTime(created)
	if err != nil {
		return nil, err
	}
	m.CreatedAt = at
	return &m, nil
}

type meetingRepo struct{ tx *sql.Tx }

const meetingColumns = `id, chat_id, organizer_id, type, title, description, scheduled_at, duration_minutes,
	url, room_id, status, created_at, updated_at, started_at, ended_at, version`

func (r meetingRepo) ByID(ctx context.Context, id domainmeeting.MeetingID) (*domainmeeting.Meeting, error) {
	return scanMeeting(r.tx.QueryRowContext(ctx, `SELECT `+meetingColumns+` FROM meetings WHERE id = ?`, string(id)))
}

func (r meetingRepo) ListByChat(ctx context.Context, chatID domainchat.ChatID) ([]*domainmeeting.Meeting, error) {
	rows, err := r.tx.QueryContext(ctx, `SELECT `+meetingColumns+` FROM meetings WHERE chat_id = ? ORDER BY created_at DESC, id DESC`, string(chatID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]*domainmeeting.Meeting, 0)
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r meetingRepo) Save(ctx context.Context, m *domainmeeting.Meeting) error {
	if m.Version == 0 {
		_, err := r.tx.ExecContext(ctx, `INSERT INTO meetings (`+meetingColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`,
			string(m.ID), string(m.ChatID), m.OrganizerID, string(m.Type), m.Title, m.Description,
			formatTimePtr(m.ScheduledAt), m.DurationMinutes, m.URL, m.RoomID, string(m.Status),
			formatTime(m.CreatedAt), formatTime(m.UpdatedAt), formatTimePtr(m.StartedAt), formatTimePtr(m.EndedAt))
		if isUniqueViolation(err) {
			return errConflict("meeting", string(m.ID))
		}
		if err != nil {
			return err
		}
		m.Version = 1
		return nil
	}
	res, err := r.tx.ExecContext(ctx, `
		UPDATE meetings SET status = ?, updated_at = ?, started_at = ?, ended_at = ?, version = version + 1
		WHERE id = ? AND version = ?`,
		string(m.Status), formatTime(m.UpdatedAt), formatTimePtr(m.StartedAt), formatTimePtr(m.EndedAt),
		string(m.ID), m.Version)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errConflict("meeting", string(m.ID))
	}
	m.Version++
	return nil
}

func scanMeeting(row scanner) (*domainmeeting.Meeting, error) {
	var (
		m                         domainmeeting.Meeting
		id, chatID, kind, status  string
		created, updated          string
		scheduled, started, ended sql.NullString
	)
	err := row.Scan(&id, &chatID, &m.OrganizerID, &kind, &m.Title, &m.Description, &scheduled, &m.DurationMinutes,
		&m.URL, &m.RoomID, &status, &created, &updated, &started, &ended, &m.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domainmeeting.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	m.ID = domainmeeting.MeetingID(id)
	m.ChatID = domainchat.ChatID(chatID)
	m.Type = domainmeeting.Type(kind)
	m.Status = domainmeeting.Status(status)
	if m.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if m.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	for _, f := range []struct {
		dst **time.Time
		raw sql.NullString
	}{{&m.ScheduledAt, scheduled}, {&m.StartedAt, started}, {&m.EndedAt, ended}} {
		if *f.dst, err = parseTimePtr(f.raw); err != nil {
			return nil, err
		}
	}
	return &m, nil
}

type notificationRepo struct{ tx *sql.Tx }

const notificationColumns = `id, recipient_id, kind, title, body, ref_id, read, created_at, read_at`

func (r notificationRepo) ByID(ctx context.Context, id domainnotification.NotificationID) (*domainnotification.Notification, error) {
	return scanNotification(r.tx.QueryRowContext(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE id = ?`, string(id)))
}

func (r notificationRepo) ListByRecipient(ctx context.Context, recipientID string, unreadOnly bool) ([]*domainnotification.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE recipient_id = ?`
	if unreadOnly {
		query += ` AND read = 0`
	}
	rows, err := r.tx.QueryContext(ctx, query+` ORDER BY created_at DESC, id DESC`, recipientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]*domainnotification.Notification, 0)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r notificationRepo) Save(ctx context.Context, n *domainnotification.Notification) error {
	_, err := r.tx.ExecContext(ctx, `
		INSERT INTO notifications (`+notificationColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET read = excluded.read, read_at = excluded.read_at`,
		string(n.ID), n.RecipientID, string(n.Kind), n.Title, n.Body, n.RefID, boolInt(n.Read),
		formatTime(n.CreatedAt), formatTimePtr(n.ReadAt))
	return err
}

func (r notificationRepo) MarkAllRead(ctx context.Context, recipientID string, at time.Time) (int, error) {
	res, err := r.tx.ExecContext(ctx, `UPDATE notifications SET read = 1, read_at = ? WHERE recipient_id = ? AND read = 0`,
		formatTime(at), recipientID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func scanNotification(row scanner) (*domainnotification.Notification, error) {
	var (
		n            domainnotification.Notification
		id, kind, at string
		read         int
		readAt       sql.NullString
	)
	err := row.Scan(&id, &n.RecipientID, &kind, &n.Title, &n.Body, &n.RefID, &read, &at, &readAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domainnotification.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	n.ID = domainnotification.NotificationID(id)
	n.Kind = domainnotification.Kind(kind)
	n.Read = read == 1
	if n.CreatedAt, err = parseTime(at); err != nil {
		return nil, err
	}
	if n.ReadAt, err = parseTimePtr(readAt); err != nil {
		return nil, err
	}
	return &n, nil
}

type ratingRepo struct{ tx *sql.Tx }

const ratingColumns = `id, swap_id, rater_id, ratee_id, score, comment, created_at`

func (r ratingRepo) Save(ctx context.Context, rt *domainrating.Rating) error {
	_, err := r.tx.ExecContext(ctx, `INSERT INTO ratings (`+ratingColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(rt.ID), string(rt.SwapID), rt.RaterID, rt.RateeID, rt.Score, rt.Comment, formatTime(rt.CreatedAt))
	if isUniqueViolation(err) {
		return domainrating.ErrAlreadyRated
	}
	return err
}

func (r ratingRepo) ListForUser(ctx context.Context, userID string) ([]*domainrating.Rating, error) {
	rows, err := r.tx.QueryContext(ctx, `SELECT `+ratingColumns+` FROM ratings
		WHERE rater_id = ? OR ratee_id = ? ORDER BY created_at DESC, id DESC`, userID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]*domainrating.Rating, 0)
	for rows.Next() {
		var (
			rt          domainrating.Rating
			id, swapID  string
			createdText string
		)
		if err := rows.Scan(&id, &swapID, &rt.RaterID, &rt.RateeID, &rt.Score, &rt.Comment, &createdText); err != nil {
			return nil, err
		}
		rt.ID = domainrating.RatingID(id)
		rt.SwapID = domainswap.SwapID(swapID)
		if rt.CreatedAt, err = parseTime(createdText); err != nil {
			return nil, err
		}
		out = append(out, &rt)
	}
	return out, rows.Err()
}

func (r ratingRepo) SummaryFor(ctx context.Context, rateeID string) (domainrating.Summary, error) {
	var s domainrating.Summary
	err := r.tx.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(AVG(score), 0.0) FROM ratings WHERE ratee_id = ?`, rateeID).
		Scan(&s.Count, &s.Average)
	return s, err
}

type totalsReader struct{ tx *sql.Tx }

func (r totalsReader) Totals(ctx context.Context, now time.Time) (uow.Totals, error) {
	var t uow.Totals
	err := r.tx.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM users WHERE active = 1 AND banned = 0),
			(SELECT COUNT(*) FROM users WHERE banned = 1),
			(SELECT COUNT(*) FROM listings),
			(SELECT COUNT(*) FROM swaps),
			(SELECT COUNT(*) FROM swaps WHERE status = ?),
			(SELECT COUNT(*) FROM swaps WHERE status = ?),
			(SELECT COUNT(*) FROM meetings),
			(SELECT COUNT(*) FROM meetings WHERE status = ? AND scheduled_at IS NOT NULL AND scheduled_at >= ?),
			(SELECT COUNT(*) FROM ratings),
			(SELECT COALESCE(AVG(score), 0.0) FROM ratings)`,
		string(domainswap.StatusPending), string(domainswap.StatusCompleted),
		string(domainmeeting.StatusScheduled), formatTime(now),
	).Scan(&t.Users, &t.BannedUsers, &t.Listings, &t.Swaps, &t.PendingSwaps, &t.CompletedSwaps,
		&t.Meetings, &t.UpcomingMeetings, &t.Ratings, &t.AverageRating)
	return t, err
}

var (
	_ domainrating.Repository       = ratingRepo{}
	_ domainuser.Repository         = userRepo{}
	_ domainlistings.Repository     = listingRepo{}
	_ domainswap.Repository         = swapRepo{}
	_ domainchat.Repository         = chatRepo{}
	_ domainchat.MessageRepository  = messageRepo{}
	_ domainmeeting.Repository      = meetingRepo{}
	_ domainnotification.Repository = notificationRepo{}
)
