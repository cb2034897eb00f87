package mysql

const upsertOptionSQL = `
INSERT INTO bys_options (name, value)
VALUES (?, ?)
ON DUPLICATE KEY UPDATE
  value      = VALUES(value),
  updated_at = CURRENT_TIMESTAMP
`

const getOptionSQL = `
SELECT value FROM bys_options WHERE name = ?
`

const deleteOptionSQL = `
DELETE FROM bys_options WHERE name = ?
`

const listOptionsSQL = `
SELECT name, value FROM bys_options WHERE name LIKE ? ORDER BY name
`
