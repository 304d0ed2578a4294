package vector

import "fmt"

const (
	trainingSchemaSQL = `
CREATE TABLE IF NOT EXISTS training_data (
	id TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	question TEXT NOT NULL DEFAULT '',
	content TEXT NOT NULL,
	created_at TIMESTAMP WITHOUT TIME ZONE NOT NULL,
	embedding VECTOR(%d) NOT NULL
)
`
	storeTrainingSQL = `
INSERT INTO training_data
	(id, kind, question, content, created_at, embedding)
VALUES
	(:id, :kind, :question, :content, :created_at, :embedding)
`
	listTrainingSQL = `
SELECT
	id, kind, question, content
FROM training_data
ORDER BY created_at, id
`
	removeTrainingSQL = `
DELETE FROM training_data WHERE id = $1
`
	similarTrainingSQL = `
SELECT
	id, kind, question, content
FROM training_data
WHERE kind = $1
ORDER BY
	embedding <-> $2
LIMIT $3
`
	historySchemaSQL = `
CREATE TABLE IF NOT EXISTS question_history (
	id SERIAL PRIMARY KEY,
	question TEXT NOT NULL,
	sql TEXT NOT NULL,
	created_at TIMESTAMP WITHOUT TIME ZONE NOT NULL
)
`
	storeHistorySQL = `
INSERT INTO question_history
	(question, sql, created_at)
VALUES
	(:question, :sql, :created_at)
`
	recentHistorySQL = `
SELECT
	id, question, sql, created_at
FROM question_history
ORDER BY created_at DESC, id DESC
LIMIT $1
`
)

func trainingSchema(dimensions int64) string {
	return fmt.Sprintf(trainingSchemaSQL, dimensions)
}
