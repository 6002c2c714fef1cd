package database

import (
	"context"
	"errors"
	"fmt"

	"taskboard/internal/models"
	"taskboard/pkg/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

const uniqueViolation = "23505"

type PostgresDB struct {
	pool *pgxpool.Pool
}

func NewPostgresDB(ctx context.Context, databaseURL string) (*PostgresDB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Connected to database successfully")
	return &PostgresDB{pool: pool}, nil
}

func (db *PostgresDB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

func (db *PostgresDB) Close() error {
	db.pool.Close()
	return nil
}

// notFound maps pgx.ErrNoRows to ErrNotFound and leaves other errors alone.
func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// User Repository Implementation
func (db *PostgresDB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT id, username, email, full_name, password, created_at FROM users WHERE email = $1`

	user := &models.User{}
	err := db.pool.QueryRow(ctx, query, email).Scan(
		&user.ID, &user.Username, &user.Email, &user.FullName, &user.PasswordHash, &user.CreatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return user, nil
}

func (db *PostgresDB) GetUserByID(ctx context.Context, id int) (*models.User, error) {
	query := `SELECT id, username, email, full_name, created_at FROM users WHERE id = $1`

	user := &models.User{}
	err := db.pool.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.Username, &user.Email, &user.FullName, &user.CreatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return user, nil
}

func (db *PostgresDB) UserExists(ctx context.Context, email, username string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1 OR username = $2)`

	var exists bool
	err := db.pool.QueryRow(ctx, query, email, username).Scan(&exists)
	return exists, err
}

func (db *PostgresDB) CreateUser(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	query := `
		INSERT INTO users (username, email, password, full_name)
		VALUES ($1, $2, $3, NULLIF($4, ''))
		RETURNING id, username, email, full_name, created_at`

	user := &models.User{}
	err = db.pool.QueryRow(ctx, query, req.Username, req.Email, string(hash), req.FullName).Scan(
		&user.ID, &user.Username, &user.Email, &user.FullName, &user.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// Project Repository Implementation
const projectColumns = `p.id, p.name, p.description, p.status, p.owner_id, COALESCE(u.username, ''), p.created_at, p.updated_at`

func scanProject(row pgx.Row, extra ...any) (*models.Project, error) {
	p := &models.Project{}
	dest := append([]any{
		&p.ID, &p.Name, &p.Description, &p.Status, &p.OwnerID, &p.OwnerName, &p.CreatedAt, &p.UpdatedAt,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return p, nil
}

func (db *PostgresDB) ListProjects(ctx context.Context, userID int) ([]*models.Project, error) {
	query := `
		SELECT ` + projectColumns + `,
			(SELECT COUNT(*) FROM project_members WHERE project_id = p.id),
			(SELECT COUNT(*) FROM tasks WHERE project_id = p.id)
		FROM projects p
		LEFT JOIN users u ON p.owner_id = u.id
		WHERE p.owner_id = $1
			OR EXISTS(SELECT 1 FROM project_members pm WHERE pm.project_id = p.id AND pm.user_id = $1)
		ORDER BY p.created_at DESC`

	rows, err := db.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []*models.Project
	for rows.Next() {
		var members, tasks int
		p, err := scanProject(rows, &members, &tasks)
		if err != nil {
			return nil, err
		}
		p.MemberCount, p.TaskCount = members, tasks
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (db *PostgresDB) GetProject(ctx context.Context, projectID int) (*models.Project, error) {
	query := `
		SELECT ` + projectColumns + `
		FROM projects p
		LEFT JOIN users u ON p.owner_id = u.id
		WHERE p.id = $1`

	p, err := scanProject(db.pool.QueryRow(ctx, query, projectID))
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

// CreateProject inserts the project and its owner membership in one transaction.
func (db *PostgresDB) CreateProject(ctx context.Context, req *models.CreateProjectRequest, ownerID int) (*models.Project, error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var projectID int
	err = tx.QueryRow(ctx, `
		INSERT INTO projects (name, description, owner_id)
		VALUES ($1, NULLIF($2, ''), $3)
		RETURNING id`, req.Name, req.Description, ownerID).Scan(&projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO project_members (project_id, user_id, role) VALUES ($1, $2, $3)`,
		projectID, ownerID, models.RoleOwner,
	); err != nil {
		return nil, fmt.Errorf("failed to add owner membership: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return db.GetProject(ctx, projectID)
}

func (db *PostgresDB) UpdateProject(ctx context.Context, projectID int, req *models.UpdateProjectRequest) (*models.Project, error) {
	query := `
		UPDATE projects
		SET name = COALESCE($1, name),
			description = COALESCE($2, description),
			status = COALESCE($3, status),
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $4`

	tag, err := db.pool.Exec(ctx, query, req.Name, req.Description, req.Status, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return db.GetProject(ctx, projectID)
}

func (db *PostgresDB) DeleteProject(ctx context.Context, projectID int) error {
	tag, err := db.pool.Exec(ctx, `DELETE FROM projects WHERE id = $1`, projectID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// HasProjectAccess reports whether userID owns or is a member of projectID.
func (db *PostgresDB) HasProjectAccess(ctx context.Context, projectID, userID int) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM projects p
			LEFT JOIN project_members pm ON p.id = pm.project_id AND pm.user_id = $2
			WHERE p.id = $1 AND (p.owner_id = $2 OR pm.user_id IS NOT NULL)
		)`

	var ok bool
	err := db.pool.QueryRow(ctx, query, projectID, userID).Scan(&ok)
	return ok, err
}

func (db *PostgresDB) GetProjectStats(ctx context.Context, projectID int) (*models.ProjectStats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'todo'),
			COUNT(*) FILTER (WHERE status = 'in_progress'),
			COUNT(*) FILTER (WHERE status = 'review'),
			COUNT(*) FILTER (WHERE status = 'completed')
		FROM tasks WHERE project_id = $1`

	s := &models.ProjectStats{}
	err := db.pool.QueryRow(ctx, query, projectID).Scan(
		&s.TotalTasks, &s.TodoTasks, &s.InProgressTasks, &s.ReviewTasks, &s.CompletedTasks,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Membership Repository Implementation
func (db *PostgresDB) AddMember(ctx context.Context, projectID, userID int, role string) error {
	query := `INSERT INTO project_members (project_id, user_id, role) VALUES ($1, $2, $3)`
	if _, err := db.pool.Exec(ctx, query, projectID, userID, role); err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (db *PostgresDB) RemoveMember(ctx context.Context, projectID, userID int) error {
	query := `DELETE FROM project_members WHERE project_id = $1 AND user_id = $2`
	_, err := db.pool.Exec(ctx, query, projectID, userID)
	return err
}

func (db *PostgresDB) IsMember(ctx context.Context, projectID, userID int) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM project_members WHERE project_id = $1 AND user_id = $2)`

	var exists bool
	err := db.pool.QueryRow(ctx, query, projectID, userID).Scan(&exists)
	return exists, err
}

func (db *PostgresDB) ListMembers(ctx context.Context, projectID int) ([]*models.Member, error) {
	query := `
		SELECT u.id, u.username, u.email, u.full_name, pm.role, pm.joined_at
		FROM project_members pm
		JOIN users u ON pm.user_id = u.id
		WHERE pm.project_id = $1
		ORDER BY pm.joined_at`

	rows, err := db.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []*models.Member
	for rows.Next() {
		m := &models.Member{}
		if err := rows.Scan(&m.ID, &m.Username, &m.Email, &m.FullName, &m.Role, &m.JoinedAt); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// Task Repository Implementation
const taskSelect = `
	SELECT t.id, t.title, t.description, t.status, t.priority, t.assigned_to, t.due_date,
		t.project_id, t.created_by, t.created_at, t.updated_at,
		COALESCE(u1.username, ''), u2.username, u2.email, p.name
	FROM tasks t
	JOIN projects p ON t.project_id = p.id
	LEFT JOIN users u1 ON t.created_by = u1.id
	LEFT JOIN users u2 ON t.assigned_to = u2.id`

func scanTask(row pgx.Row) (*models.Task, error) {
	t := &models.Task{}
	err := row.Scan(
		&t.ID, &t.Title, &t.Description, &t.Status, &t.Priority, &t.AssignedTo, &t.DueDate,
		&t.ProjectID, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt,
		&t.CreatedByName, &t.AssignedToName, &t.AssignedToEmail, &t.ProjectName,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (db *PostgresDB) ListTasks(ctx context.Context, projectID int) ([]*models.Task, error) {
	rows, err := db.pool.Query(ctx, taskSelect+` WHERE t.project_id = $1 ORDER BY t.created_at DESC`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []*models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (db *PostgresDB) GetTask(ctx context.Context, taskID int) (*models.Task, error) {
	t, err := scanTask(db.pool.QueryRow(ctx, taskSelect+` WHERE t.id = $1`, taskID))
	if err != nil {
		return nil, notFound(err)
	}
	return t, nil
}

func (db *PostgresDB) CreateTask(ctx context.Context, projectID, createdBy int, req *models.CreateTaskRequest) (*models.Task, error) {
	dueDate, err := models.ParseDueDate(req.DueDate)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO tasks (title, description, project_id, created_by, assigned_to, priority, due_date)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7)
		RETURNING id`

	var taskID int
	err = db.pool.QueryRow(ctx, query,
		req.Title, req.Description, projectID, createdBy, req.AssignedTo, req.Priority, dueDate,
	).Scan(&taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return db.GetTask(ctx, taskID)
}

func (db *PostgresDB) UpdateTask(ctx context.Context, taskID int, req *models.UpdateTaskRequest) (*models.Task, error) {
	var dueDate any
	if req.DueDate != nil {
		parsed, err := models.ParseDueDate(*req.DueDate)
		if err != nil {
			return nil, err
		}
		dueDate = parsed
	}

	query := `
		UPDATE tasks
		SET title = COALESCE($1, title),
			description = COALESCE($2, description),
			status = COALESCE($3, status),
			priority = COALESCE($4, priority),
			assigned_to = COALESCE($5, assigned_to),
			due_date = COALESCE($6, due_date),
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $7`

	tag, err := db.pool.Exec(ctx, query,
		req.Title, req.Description, req.Status, req.Priority, req.AssignedTo, dueDate, taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return db.GetTask(ctx, taskID)
}

func (db *PostgresDB) UpdateTaskStatus(ctx context.Context, taskID int, status models.TaskStatus) error {
	query := `UPDATE tasks SET status = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`
	tag, err := db.pool.Exec(ctx, query, status, taskID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *PostgresDB) DeleteTask(ctx context.Context, taskID int) error {
	tag, err := db.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, taskID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Comment Repository Implementation
const commentSelect = `
	SELECT c.id, c.task_id, c.user_id, c.content, c.created_at, u.username, u.full_name, u.email
	FROM comments c
	JOIN users u ON c.user_id = u.id`

func scanComment(row pgx.Row) (*models.Comment, error) {
	c := &models.Comment{}
	err := row.Scan(&c.ID, &c.TaskID, &c.UserID, &c.Content, &c.CreatedAt, &c.Username, &c.FullName, &c.Email)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (db *PostgresDB) ListComments(ctx context.Context, taskID int) ([]*models.Comment, error) {
	rows, err := db.pool.Query(ctx, commentSelect+` WHERE c.task_id = $1 ORDER BY c.created_at ASC`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := []*models.Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

func (db *PostgresDB) GetComment(ctx context.Context, commentID int) (*models.Comment, error) {
	c, err := scanComment(db.pool.QueryRow(ctx, commentSelect+` WHERE c.id = $1`, commentID))
	if err != nil {
		return nil, notFound(err)
	}
	return c, nil
}

func (db *PostgresDB) CreateComment(ctx context.Context, taskID, userID int, content string) (*models.Comment, error) {
	var commentID int
	err := db.pool.QueryRow(ctx,
		`INSERT INTO comments (task_id, user_id, content) VALUES ($1, $2, $3) RETURNING id`,
		taskID, userID, content,
	).Scan(&commentID)
	if err != nil {
		return nil, fmt.Errorf("failed to add comment: %w", err)
	}
	return db.GetComment(ctx, commentID)
}

func (db *PostgresDB) DeleteComment(ctx context.Context, commentID int) error {
	tag, err := db.pool.Exec(ctx, `DELETE FROM comments WHERE id = $1`, commentID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
