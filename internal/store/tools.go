package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/seamlane/journeyd/internal/domain"
)

// ToolStore persists workspace-owned tool definitions.
type ToolStore struct {
	db *DB
}

// NewToolStore creates a tool store using the given database.
func NewToolStore(db *DB) *ToolStore {
	return &ToolStore{db: db}
}

// Create inserts a new tool.
func (s *ToolStore) Create(ctx context.Context, tool *domain.Tool) error {
	if tool.WorkspaceID == "" {
		return &domain.ValidationError{Field: "workspaceId", Reason: "workspace id is required"}
	}
	if tool.Name == "" {
		return &domain.ValidationError{Field: "name", Reason: "tool name is required"}
	}
	if tool.ID == "" {
		tool.ID = uuid.New().String()
	}
	if tool.CreatedAt.IsZero() {
		tool.CreatedAt = time.Now()
	}

	_, err := s.db.sql.ExecContext(ctx,
		`INSERT INTO tools (id, workspace_id, name, description, is_public, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		tool.ID, tool.WorkspaceID, tool.Name, tool.Description, boolInt(tool.IsPublic), fmtTime(tool.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return &domain.ValidationError{Field: "name", Reason: fmt.Sprintf("tool %q already exists in workspace", tool.Name)}
		}
		return fmt.Errorf("inserting tool: %w", err)
	}
	return nil
}

// Get returns a tool by id.
func (s *ToolStore) Get(ctx context.Context, id string) (*domain.Tool, error) {
	row := s.db.sql.QueryRowContext(ctx,
		`SELECT id, workspace_id, name, description, is_public, created_at
		 FROM tools WHERE id = ?`, id,
	)
	tool, err := scanTool(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading tool %s: %w", id, err)
	}
	return tool, nil
}

// GetByName returns a workspace's tool by name.
func (s *ToolStore) GetByName(ctx context.Context, workspaceID, name string) (*domain.Tool, error) {
	row := s.db.sql.QueryRowContext(ctx,
		`SELECT id, workspace_id, name, description, is_public, created_at
		 FROM tools WHERE workspace_id = ? AND name = ?`, workspaceID, name,
	)
	tool, err := scanTool(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading tool %s/%s: %w", workspaceID, name, err)
	}
	return tool, nil
}

// List returns a workspace's own tools plus public tools from other
// workspaces.
func (s *ToolStore) List(ctx context.Context, workspaceID string) ([]domain.Tool, error) {
	rows, err := s.db.sql.QueryContext(ctx,
		`SELECT id, workspace_id, name, description, is_public, created_at
		 FROM tools WHERE workspace_id = ? OR is_public = 1
		 ORDER BY workspace_id, name`, workspaceID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing tools: %w", err)
	}
	defer rows.Close()
	return scanTools(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTool(row rowScanner) (*domain.Tool, error) {
	var (
		tool      domain.Tool
		isPublic  int
		createdAt string
	)
	if err := row.Scan(&tool.ID, &tool.WorkspaceID, &tool.Name, &tool.Description, &isPublic, &createdAt); err != nil {
		return nil, err
	}
	tool.IsPublic = isPublic != 0
	tool.CreatedAt = parseTime(createdAt)
	return &tool, nil
}

func scanTools(rows *sql.Rows) ([]domain.Tool, error) {
	var tools []domain.Tool
	for rows.Next() {
		tool, err := scanTool(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning tool: %w", err)
		}
		tools = append(tools, *tool)
	}
	return tools, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
