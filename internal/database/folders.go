package database

import (
	"context"
	"fmt"
)

// AddFolder inserts a tracked folder row and returns its generated id.
// Returns ErrConstraint when the path is already tracked; callers are
// expected to check trackedness first.
func (s *Store) AddFolder(ctx context.Context, path string) (int64, error) {
	var id int64
	err := runWithRetry(ctx, "add_folder", func(ctx context.Context) error {
		result, err := s.db.ExecContext(ctx,
			"INSERT INTO folders (path) VALUES (?)", path)
		if err != nil {
			return err
		}
		id, err = result.LastInsertId()
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// DeleteFolders removes the folder rows for paths; foreign keys cascade to
// their files and tag associations. Only the ids of folders that actually
// existed are returned.
func (s *Store) DeleteFolders(ctx context.Context, paths ...string) ([]int64, error) {
	if len(paths) == 0 {
		return nil, nil
	}

	in := placeholders(len(paths))
	args := stringArgs(paths)

	var ids []int64
	err := runWithRetry(ctx, "delete_folders", func(ctx context.Context) error {
		ids = nil

		rows, err := s.db.QueryContext(ctx,
			fmt.Sprintf("SELECT folder_id FROM folders WHERE path IN (%s)", in),
			args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				return err
			}
			ids = append(ids, id)
		}
		if err := rows.Err(); err != nil {
			return err
		}

		_, err = s.db.ExecContext(ctx,
			fmt.Sprintf("DELETE FROM folders WHERE path IN (%s)", in),
			args...)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// GetTrackedFolders returns the full folder catalog.
func (s *Store) GetTrackedFolders(ctx context.Context) ([]Folder, error) {
	var folders []Folder
	err := runWithRetry(ctx, "get_tracked_folders", func(ctx context.Context) error {
		folders = nil

		rows, err := s.db.QueryContext(ctx,
			"SELECT folder_id, path FROM folders ORDER BY folder_id")
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var f Folder
			if err := rows.Scan(&f.ID, &f.Path); err != nil {
				return err
			}
			folders = append(folders, f)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return folders, nil
}
