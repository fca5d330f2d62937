package cache

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/stevecastle/recon3d/pointcloud"
)

// ErrNotFound is returned when no cloud is stored under a name.
var ErrNotFound = errors.New("point cloud not found")

// Entry describes a stored cloud without its points.
type Entry struct {
	Name      string `json:"name"`
	NumPoints int    `json:"num_points"`
	CreatedAt int64  `json:"created_at"`
}

// Store keeps named point clouds in sqlite as binary PCD blobs.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Put stores c under name, replacing any previous cloud.
func (s *Store) Put(ctx context.Context, name string, c *pointcloud.Cloud) error {
	if name == "" {
		return errors.New("name cannot be empty")
	}
	if err := c.Validate(); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := pointcloud.WritePCD(c, &buf, pointcloud.PCDBinary); err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO point_clouds (name, num_points, data, created_at) VALUES (?, ?, ?, ?)",
		name, c.Len(), buf.Bytes(), time.Now().Unix())
	return err
}

// Get loads the cloud stored under name.
func (s *Store) Get(ctx context.Context, name string) (*pointcloud.Cloud, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, "SELECT data FROM point_clouds WHERE name = ?", name).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	} else if err != nil {
		return nil, err
	}
	c, err := pointcloud.ReadPCD(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return c, nil
}

// List returns every stored cloud ordered by name.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name, num_points, created_at FROM point_clouds ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Name, &e.NumPoints, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Delete removes the cloud stored under name.
func (s *Store) Delete(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM point_clouds WHERE name = ?", name)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return nil
}
