package database

import (
	"context"
	"errors"
	"strings"
)

// AddTagGroup inserts the group, ignoring a duplicate by name.
func (s *Store) AddTagGroup(ctx context.Context, g TagGroup) error {
	if strings.TrimSpace(g.Name) == "" {
		return errors.New("tag group name cannot be empty")
	}
	return runWithRetry(ctx, "add_tag_group", func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx,
			"INSERT OR IGNORE INTO tag_groups (name, color) VALUES (?, ?)",
			g.Name, g.Color)
		return err
	})
}

// UpdateTagGroup changes name and color for the row currently named
// original.Name. Protection of the reserved default group is the metadata
// service's job, not the store's.
func (s *Store) UpdateTagGroup(ctx context.Context, original, updated TagGroup) error {
	if strings.TrimSpace(updated.Name) == "" {
		return errors.New("tag group name cannot be empty")
	}
	return runWithRetry(ctx, "update_tag_group", func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx,
			"UPDATE tag_groups SET name = ?, color = ? WHERE name = ?",
			updated.Name, updated.Color, original.Name)
		return err
	})
}

// GetTagGroups returns the full group catalog, the default group included.
func (s *Store) GetTagGroups(ctx context.Context) ([]TagGroup, error) {
	var groups []TagGroup
	err := runWithRetry(ctx, "get_tag_groups", func(ctx context.Context) error {
		groups = nil

		rows, err := s.db.QueryContext(ctx,
			"SELECT group_id, name, color FROM tag_groups ORDER BY group_id")
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var g TagGroup
			if err := rows.Scan(&g.ID, &g.Name, &g.Color); err != nil {
				return err
			}
			groups = append(groups, g)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return groups, nil
}
