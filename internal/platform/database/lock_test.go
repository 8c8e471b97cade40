package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLockID(t *testing.T) {
	assert.Equal(t, LockID("corpus", "nazarriya_documents"), LockID("corpus", "nazarriya_documents"))
	assert.NotEqual(t, LockID("corpus", "a"), LockID("corpus", "b"))
	assert.Equal(t, LockID("ab", "c"), LockID("a", "bc"))
}

func TestConnectionParams_ConnString(t *testing.T) {
	params := ConnectionParams{Host: "localhost", Port: 5432, User: "u", Password: "p", DBName: "rag", SSLMode: "disable"}
	assert.Equal(t, "host=localhost port=5432 user=u password=p dbname=rag sslmode=disable", params.ConnString())
}
