package status

import (
	"net/http/httptest"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlcocdav/ctfbench/pkg/eval"
)

func Test_U_Progress(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	// A nil tracker still answers, with a zeroed snapshot: the status
	// server may come up before the run starts.
	rec := httptest.NewRecorder()
	progress(nil).ServeHTTP(rec, httptest.NewRequest("GET", "/progress", nil))
	assert.Equal(200, rec.Code)

	p := eval.Progress{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Zero(p.Total)

	rec = httptest.NewRecorder()
	progress(nil).ServeHTTP(rec, httptest.NewRequest("POST", "/progress", nil))
	assert.Equal(405, rec.Code)
}
