package database

import (
	"context"
	"database/sql"
)

// AddFile inserts one file row. Path uniqueness is enforced by the schema.
// The file's tag set is not written here; associations go through AddTag.
func (s *Store) AddFile(ctx context.Context, f File) error {
	return runWithRetry(ctx, "add_file", func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx,
			"INSERT INTO files (path, folder_id, thumbnail, description) VALUES (?, ?, ?, ?)",
			f.Path, f.FolderID, nullable(f.Thumbnail), nullable(f.Description))
		return err
	})
}

// UpdateDescription sets the description for filePath and returns the file's
// new projection without its tag set. Returns (nil, nil) when the path is
// not tracked; an unknown file is an expected condition, not an error.
func (s *Store) UpdateDescription(ctx context.Context, text, filePath string) (*File, error) {
	var file *File
	err := runWithRetry(ctx, "update_description", func(ctx context.Context) error {
		file = nil

		result, err := s.db.ExecContext(ctx,
			"UPDATE files SET description = ? WHERE path = ?",
			nullable(text), filePath)
		if err != nil {
			return err
		}
		if n, err := result.RowsAffected(); err != nil || n == 0 {
			return err
		}

		var (
			f           File
			thumb, desc sql.NullString
		)
		err = s.db.QueryRowContext(ctx,
			"SELECT path, folder_id, thumbnail, description FROM files WHERE path = ?",
			filePath,
		).Scan(&f.Path, &f.FolderID, &thumb, &desc)
		if err != nil {
			return err
		}
		f.Thumbnail = thumb.String
		f.Description = desc.String
		file = &f
		return nil
	})
	if err != nil {
		return nil, err
	}
	return file, nil
}

// GetFiles returns one File per distinct path with its full tag set,
// optionally restricted to the given tracked folders. A file with N tags
// produces N join rows that are folded into a single record; a file with
// zero tags produces one row with NULL tag columns, which must not become a
// phantom empty tag.
func (s *Store) GetFiles(ctx context.Context, folders ...string) ([]File, error) {
	query := `
		SELECT f.path, f.folder_id, f.thumbnail, f.description,
		       t.name, ft.tag_value, g.name, g.color
		FROM files f
		LEFT JOIN file_tags ft ON ft.file_id = f.file_id
		LEFT JOIN tags t ON t.tag_id = ft.tag_id
		LEFT JOIN tag_groups g ON g.group_id = t.group_id`
	var args []any
	if len(folders) > 0 {
		query += `
		WHERE f.folder_id IN (SELECT folder_id FROM folders WHERE path IN (` + placeholders(len(folders)) + `))`
		args = stringArgs(folders)
	}
	query += `
		ORDER BY f.file_id`

	var files []File
	err := runWithRetry(ctx, "get_files", func(ctx context.Context) error {
		files = nil

		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		byPath := make(map[string]int)
		for rows.Next() {
			var f File
			var thumb, desc, tagName, tagValue, gName, gColor sql.NullString
			if err := rows.Scan(&f.Path, &f.FolderID, &thumb, &desc,
				&tagName, &tagValue, &gName, &gColor); err != nil {
				return err
			}

			i, seen := byPath[f.Path]
			if !seen {
				f.Thumbnail = thumb.String
				f.Description = desc.String
				files = append(files, f)
				i = len(files) - 1
				byPath[f.Path] = i
			}
			if tagName.Valid {
				files[i].Tags = append(files[i].Tags, Tag{
					Name:  tagName.String,
					Value: tagValue.String,
					Group: TagGroup{Name: gName.String, Color: gColor.String},
				})
			}
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
