package database

import (
	"context"
	"errors"
	"strings"
)

func validateTag(tag Tag) error {
	if strings.TrimSpace(tag.Name) == "" {
		return errors.New("tag name cannot be empty")
	}
	return nil
}

// AddTag upserts the tag row, attached to its group by name (falling back to
// the default group), then upserts one association per file. Duplicate
// (file, tag, value) triples are silently ignored: the association has set
// semantics.
func (s *Store) AddTag(ctx context.Context, tag Tag, filePaths ...string) error {
	if err := validateTag(tag); err != nil {
		return err
	}
	if len(filePaths) == 0 {
		return nil
	}

	group := tag.Group.Name
	if group == "" {
		group = DefaultGroupName
	}

	return runWithRetry(ctx, "add_tag", func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, `
			INSERT OR IGNORE INTO tags (name, group_id)
			VALUES (?, (SELECT group_id FROM tag_groups WHERE name = ?))`,
			tag.Name, group)
		if err != nil {
			return err
		}

		for _, path := range filePaths {
			_, err := s.db.ExecContext(ctx, `
				INSERT OR IGNORE INTO file_tags (file_id, tag_id, tag_value)
				SELECT f.file_id, t.tag_id, ?
				FROM files f, tags t
				WHERE f.path = ? AND t.name = ?`,
				tag.Value, path, tag.Name)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteTag removes the (name, value) association from each of filePaths.
// The tag row itself stays until DeleteUnusedTags prunes it.
func (s *Store) DeleteTag(ctx context.Context, tag Tag, filePaths ...string) error {
	if len(filePaths) == 0 {
		return nil
	}

	query := `
		DELETE FROM file_tags
		WHERE tag_id = (SELECT tag_id FROM tags WHERE name = ?)
		  AND tag_value = ?
		  AND file_id IN (SELECT file_id FROM files WHERE path IN (` + placeholders(len(filePaths)) + `))`
	args := append([]any{tag.Name, tag.Value}, stringArgs(filePaths)...)

	return runWithRetry(ctx, "delete_tag", func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
}

// DeleteUnusedTags prunes every tag with zero remaining file associations
// and returns how many were removed.
func (s *Store) DeleteUnusedTags(ctx context.Context) (int64, error) {
	var n int64
	err := runWithRetry(ctx, "delete_unused_tags", func(ctx context.Context) error {
		result, err := s.db.ExecContext(ctx, `
			DELETE FROM tags
			WHERE tag_id NOT IN (SELECT DISTINCT tag_id FROM file_tags)`)
		if err != nil {
			return err
		}
		n, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// GetTags returns the catalog of distinct tag instances across all files.
// A tag row with no associations yet (possible before pruning) appears once
// as a bare tag.
func (s *Store) GetTags(ctx context.Context) ([]Tag, error) {
	var tags []Tag
	err := runWithRetry(ctx, "get_tags", func(ctx context.Context) error {
		tags = nil

		rows, err := s.db.QueryContext(ctx, `
			SELECT DISTINCT t.name, COALESCE(ft.tag_value, ''), g.name, g.color
			FROM tags t
			LEFT JOIN file_tags ft ON ft.tag_id = t.tag_id
			JOIN tag_groups g ON g.group_id = t.group_id
			ORDER BY t.name, COALESCE(ft.tag_value, '')`)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var t Tag
			if err := rows.Scan(&t.Name, &t.Value, &t.Group.Name, &t.Group.Color); err != nil {
				return err
			}
			tags = append(tags, t)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return tags, nil
}
