package repositories

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"soundscore/internal/models"
)

// GroupRepository defines the interface for group, membership, invite and
// group message operations
type GroupRepository interface {
	Create(ctx context.Context, group *models.Group) error
	Update(ctx context.Context, group *models.Group) error
	Delete(ctx context.Context, id int64) error
	FindByID(ctx context.Context, id int64) (*models.Group, error)
	List(ctx context.Context, category string, userID int64, limit, offset int) ([]*models.Group, error)
	ListForUser(ctx context.Context, userID int64) ([]*models.Group, error)

	// Membership
	AddMember(ctx context.Context, groupID, userID int64, role string) error
	RemoveMember(ctx context.Context, groupID, userID int64) (bool, error)
	UpdateRole(ctx context.Context, groupID, userID int64, role string) (bool, error)
	FindMember(ctx context.Context, groupID, userID int64) (*models.GroupMember, error)
	ListMembers(ctx context.Context, groupID int64) ([]*models.GroupMember, error)

	// Invites
	CreateInvite(ctx context.Context, invite *models.GroupInvite) error
	FindInvite(ctx context.Context, id int64) (*models.GroupInvite, error)
	FindPendingInvite(ctx context.Context, groupID, inviteeID int64) (*models.GroupInvite, error)
	UpdateInviteStatus(ctx context.Context, id int64, status string) error
	ListInvitesForUser(ctx context.Context, inviteeID int64) ([]*models.GroupInvite, error)

	// Messages
	CreateMessage(ctx context.Context, msg *models.GroupMessage) error
	ListMessages(ctx context.Context, groupID int64, before int64, limit int) ([]*models.GroupMessage, error)
}

var groupColumns = []string{
	"g.id", "g.name", "g.description", "g.category", "g.privacy",
	"g.cover_image_url", "g.created_by", "g.created_at",
	"(SELECT COUNT(*) FROM group_members gm WHERE gm.group_id = g.id)",
}

// postgresGroupRepository implements GroupRepository using Postgres
type postgresGroupRepository struct {
	db *models.Database
}

// NewPostgresGroupRepository creates a new Postgres-backed group repository
func NewPostgresGroupRepository(db *models.Database) GroupRepository {
	return &postgresGroupRepository{db: db}
}

func scanGroup(row pgx.Row) (*models.Group, error) {
	var g models.Group
	err := row.Scan(&g.ID, &g.Name, &g.Description, &g.Category, &g.Privacy,
		&g.CoverImageURL, &g.CreatedBy, &g.CreatedAt, &g.MemberCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan group: %w", err)
	}
	return &g, nil
}

// Create inserts a group and adds the creator as admin in one transaction
func (r *postgresGroupRepository) Create(ctx context.Context, group *models.Group) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	const insertGroup = `
		INSERT INTO groups (name, description, category, privacy, cover_image_url, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`
	err = tx.QueryRow(ctx, insertGroup,
		group.Name, group.Description, group.Category, group.Privacy,
		group.CoverImageURL, group.CreatedBy).
		Scan(&group.ID, &group.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert group: %w", err)
	}

	const insertAdmin = `
		INSERT INTO group_members (group_id, user_id, role) VALUES ($1, $2, $3)`
	if _, err := tx.Exec(ctx, insertAdmin, group.ID, group.CreatedBy, models.RoleAdmin); err != nil {
		return fmt.Errorf("failed to insert group admin: %w", err)
	}

	group.MemberCount = 1
	group.MyRole = models.RoleAdmin
	return tx.Commit(ctx)
}

// Update saves group settings
func (r *postgresGroupRepository) Update(ctx context.Context, group *models.Group) error {
	query, args, err := psql.Update("groups").
		Set("name", group.Name).
		Set("description", group.Description).
		Set("category", group.Category).
		Set("privacy", group.Privacy).
		Set("cover_image_url", group.CoverImageURL).
		Where(sq.Eq{"id": group.ID}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build group update: %w", err)
	}

	if _, err := r.db.Pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update group: %w", err)
	}
	return nil
}

// Delete removes a group. Members, invites and messages cascade.
func (r *postgresGroupRepository) Delete(ctx context.Context, id int64) error {
	query, args, err := psql.Delete("groups").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build group delete: %w", err)
	}

	if _, err := r.db.Pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}
	return nil
}

// FindByID loads a group with its member count
func (r *postgresGroupRepository) FindByID(ctx context.Context, id int64) (*models.Group, error) {
	query, args, err := psql.Select(groupColumns...).
		From("groups g").Where(sq.Eq{"g.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build group query: %w", err)
	}
	return scanGroup(r.db.Pool.QueryRow(ctx, query, args...))
}

// List browses groups. Private groups appear but are join-gated elsewhere.
func (r *postgresGroupRepository) List(ctx context.Context, category string, userID int64, limit, offset int) ([]*models.Group, error) {
	builder := psql.Select(groupColumns...).
		From("groups g").
		OrderBy("g.created_at DESC").
		Limit(uint64(limit)).Offset(uint64(offset))

	if category != "" {
		builder = builder.Where(sq.Eq{"g.category": category})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build groups query: %w", err)
	}

	groups, err := r.queryGroups(ctx, query, args)
	if err != nil {
		return nil, err
	}
	if userID != 0 {
		if err := r.fillRoles(ctx, groups, userID); err != nil {
			return nil, err
		}
	}
	return groups, nil
}

// ListForUser lists groups the user belongs to
func (r *postgresGroupRepository) ListForUser(ctx context.Context, userID int64) ([]*models.Group, error) {
	query, args, err := psql.Select(append(groupColumns, "gm.role")...).
		From("groups g").
		Join("group_members gm ON gm.group_id = g.id").
		Where(sq.Eq{"gm.user_id": userID}).
		OrderBy("gm.joined_at DESC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build user groups query: %w", err)
	}

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query user groups: %w", err)
	}
	defer rows.Close()

	var groups []*models.Group
	for rows.Next() {
		var g models.Group
		err := rows.Scan(&g.ID, &g.Name, &g.Description, &g.Category, &g.Privacy,
			&g.CoverImageURL, &g.CreatedBy, &g.CreatedAt, &g.MemberCount, &g.MyRole)
		if err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, &g)
	}
	return groups, rows.Err()
}

// AddMember inserts a membership. Joining twice is a no-op.
func (r *postgresGroupRepository) AddMember(ctx context.Context, groupID, userID int64, role string) error {
	query, args, err := psql.Insert("group_members").
		Columns("group_id", "user_id", "role").
		Values(groupID, userID, role).
		Suffix("ON CONFLICT DO NOTHING").ToSql()
	if err != nil {
		return fmt.Errorf("failed to build member insert: %w", err)
	}

	if _, err := r.db.Pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert member: %w", err)
	}
	return nil
}

// RemoveMember deletes a membership. Returns false when no row matched.
func (r *postgresGroupRepository) RemoveMember(ctx context.Context, groupID, userID int64) (bool, error) {
	query, args, err := psql.Delete("group_members").
		Where(sq.Eq{"group_id": groupID, "user_id": userID}).ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build member delete: %w", err)
	}

	tag, err := r.db.Pool.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to delete member: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// UpdateRole changes a member's role. Returns false when no row matched.
func (r *postgresGroupRepository) UpdateRole(ctx context.Context, groupID, userID int64, role string) (bool, error) {
	query, args, err := psql.Update("group_members").
		Set("role", role).
		Where(sq.Eq{"group_id": groupID, "user_id": userID}).ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build role update: %w", err)
	}

	tag, err := r.db.Pool.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to update role: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// FindMember loads one membership row
func (r *postgresGroupRepository) FindMember(ctx context.Context, groupID, userID int64) (*models.GroupMember, error) {
	query, args, err := psql.Select("group_id", "user_id", "role", "joined_at").
		From("group_members").
		Where(sq.Eq{"group_id": groupID, "user_id": userID}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build member query: %w", err)
	}

	var m models.GroupMember
	err = r.db.Pool.QueryRow(ctx, query, args...).
		Scan(&m.GroupID, &m.UserID, &m.Role, &m.JoinedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query member: %w", err)
	}
	return &m, nil
}

// ListMembers lists group members with profile fields
func (r *postgresGroupRepository) ListMembers(ctx context.Context, groupID int64) ([]*models.GroupMember, error) {
	query, args, err := psql.Select(
		"gm.group_id", "gm.user_id", "gm.role", "gm.joined_at",
		"u.username", "u.profile_picture_url",
	).
		From("group_members gm").
		Join("users u ON u.id = gm.user_id").
		Where(sq.Eq{"gm.group_id": groupID}).
		OrderBy("gm.joined_at ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build members query: %w", err)
	}

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query members: %w", err)
	}
	defer rows.Close()

	var members []*models.GroupMember
	for rows.Next() {
		var m models.GroupMember
		err := rows.Scan(&m.GroupID, &m.UserID, &m.Role, &m.JoinedAt,
			&m.Username, &m.ProfilePictureURL)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, &m)
	}
	return members, rows.Err()
}

// CreateInvite inserts a pending invite
func (r *postgresGroupRepository) CreateInvite(ctx context.Context, invite *models.GroupInvite) error {
	query, args, err := psql.Insert("group_invites").
		Columns("group_id", "inviter_id", "invitee_id", "status").
		Values(invite.GroupID, invite.InviterID, invite.InviteeID, models.InvitePending).
		Suffix("RETURNING id, created_at").ToSql()
	if err != nil {
		return fmt.Errorf("failed to build invite insert: %w", err)
	}

	err = r.db.Pool.QueryRow(ctx, query, args...).Scan(&invite.ID, &invite.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert invite: %w", err)
	}
	invite.Status = models.InvitePending
	return nil
}

// FindInvite loads an invite with group and inviter names
func (r *postgresGroupRepository) FindInvite(ctx context.Context, id int64) (*models.GroupInvite, error) {
	query, args, err := r.inviteSelect().Where(sq.Eq{"gi.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build invite query: %w", err)
	}
	return scanInvite(r.db.Pool.QueryRow(ctx, query, args...))
}

// FindPendingInvite finds an open invite for a user into a group
func (r *postgresGroupRepository) FindPendingInvite(ctx context.Context, groupID, inviteeID int64) (*models.GroupInvite, error) {
	query, args, err := r.inviteSelect().
		Where(sq.Eq{"gi.group_id": groupID, "gi.invitee_id": inviteeID, "gi.status": models.InvitePending}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build invite query: %w", err)
	}
	return scanInvite(r.db.Pool.QueryRow(ctx, query, args...))
}

// UpdateInviteStatus resolves an invite
func (r *postgresGroupRepository) UpdateInviteStatus(ctx context.Context, id int64, status string) error {
	query, args, err := psql.Update("group_invites").
		Set("status", status).
		Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build invite update: %w", err)
	}

	if _, err := r.db.Pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update invite: %w", err)
	}
	return nil
}

// ListInvitesForUser lists pending invites addressed to the user
func (r *postgresGroupRepository) ListInvitesForUser(ctx context.Context, inviteeID int64) ([]*models.GroupInvite, error) {
	query, args, err := r.inviteSelect().
		Where(sq.Eq{"gi.invitee_id": inviteeID, "gi.status": models.InvitePending}).
		OrderBy("gi.created_at DESC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build invites query: %w", err)
	}

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query invites: %w", err)
	}
	defer rows.Close()

	var invites []*models.GroupInvite
	for rows.Next() {
		invite, err := scanInvite(rows)
		if err != nil {
			return nil, err
		}
		invites = append(invites, invite)
	}
	return invites, rows.Err()
}

func (r *postgresGroupRepository) inviteSelect() sq.SelectBuilder {
	return psql.Select(
		"gi.id", "gi.group_id", "gi.inviter_id", "gi.invitee_id",
		"gi.status", "gi.created_at", "g.name", "u.username",
	).
		From("group_invites gi").
		Join("groups g ON g.id = gi.group_id").
		Join("users u ON u.id = gi.inviter_id")
}

func scanInvite(row pgx.Row) (*models.GroupInvite, error) {
	var inv models.GroupInvite
	err := row.Scan(&inv.ID, &inv.GroupID, &inv.InviterID, &inv.InviteeID,
		&inv.Status, &inv.CreatedAt, &inv.GroupName, &inv.InviterUsername)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan invite: %w", err)
	}
	return &inv, nil
}

// CreateMessage inserts a group chat message
func (r *postgresGroupRepository) CreateMessage(ctx context.Context, msg *models.GroupMessage) error {
	query, args, err := psql.Insert("group_messages").
		Columns("group_id", "user_id", "text", "image_url").
		Values(msg.GroupID, msg.UserID, msg.Text, msg.ImageURL).
		Suffix("RETURNING id, created_at").ToSql()
	if err != nil {
		return fmt.Errorf("failed to build message insert: %w", err)
	}

	err = r.db.Pool.QueryRow(ctx, query, args...).Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

// ListMessages pages backwards through group history. before is a message
// ID cursor; zero means latest.
func (r *postgresGroupRepository) ListMessages(ctx context.Context, groupID int64, before int64, limit int) ([]*models.GroupMessage, error) {
	builder := psql.Select(
		"gm.id", "gm.group_id", "gm.user_id", "gm.text", "gm.image_url",
		"gm.created_at", "u.username", "u.profile_picture_url",
	).
		From("group_messages gm").
		Join("users u ON u.id = gm.user_id").
		Where(sq.Eq{"gm.group_id": groupID}).
		OrderBy("gm.id DESC").
		Limit(uint64(limit))

	if before > 0 {
		builder = builder.Where(sq.Lt{"gm.id": before})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build messages query: %w", err)
	}

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []*models.GroupMessage
	for rows.Next() {
		var m models.GroupMessage
		err := rows.Scan(&m.ID, &m.GroupID, &m.UserID, &m.Text, &m.ImageURL,
			&m.CreatedAt, &m.Username, &m.ProfilePictureURL)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse to chronological order
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (r *postgresGroupRepository) queryGroups(ctx context.Context, query string, args []any) ([]*models.Group, error) {
	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query groups: %w", err)
	}
	defer rows.Close()

	var groups []*models.Group
	for rows.Next() {
		group, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, group)
	}
	return groups, rows.Err()
}

// fillRoles annotates each group with the viewer's membership role
func (r *postgresGroupRepository) fillRoles(ctx context.Context, groups []*models.Group, userID int64) error {
	if len(groups) == 0 {
		return nil
	}

	ids := make([]int64, len(groups))
	index := make(map[int64]*models.Group, len(groups))
	for i, g := range groups {
		ids[i] = g.ID
		index[g.ID] = g
	}

	query, args, err := psql.Select("group_id", "role").From("group_members").
		Where(sq.Eq{"user_id": userID, "group_id": ids}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build roles query: %w", err)
	}

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to query roles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var groupID int64
		var role string
		if err := rows.Scan(&groupID, &role); err != nil {
			return fmt.Errorf("failed to scan role: %w", err)
		}
		if g, ok := index[groupID]; ok {
			g.MyRole = role
		}
	}
	return rows.Err()
}
