package cli

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gamezone/internal/config"
)

func TestReadPassword_FromPipe(t *testing.T) {
	var out bytes.Buffer

	pw, err := ReadPassword(strings.NewReader("s3cret\r\nignored\n"), &out, "Password: ")

	require.NoError(t, err)
	assert.Equal(t, "s3cret", pw)
	assert.Equal(t, "Password: ", out.String())
}

func TestReadPassword_EmptyInput(t *testing.T) {
	_, err := ReadPassword(strings.NewReader(""), io.Discard, "")
	assert.ErrorIs(t, err, io.EOF)
}

func TestSheetsConfig(t *testing.T) {
	cfg := &config.Config{
		GoogleSpreadsheetID:     "sheet-1",
		GoogleSheetName:         "Report",
		GoogleActivitySheetName: "Journal",
		GoogleOAuthTokenFile:    "token.json",
	}

	sc := SheetsConfig(cfg)

	assert.Equal(t, "sheet-1", sc.SpreadsheetID)
	assert.Equal(t, "Report", sc.ReportSheet)
	assert.Equal(t, "Journal", sc.ActivitySheet)
	assert.Equal(t, "token.json", sc.OAuthTokenFile)
}

func TestOpenStorage(t *testing.T) {
	cfg := &config.Config{LogLevel: "error"}
	logger, closer := SetupLogger(cfg)
	defer closer.Close()

	db, err := OpenStorage(logger, filepath.Join(t.TempDir(), "nested", "gamezone.db"))
	require.NoError(t, err)
	defer db.Close()

	assert.NoError(t, db.Ping(t.Context()))
}

func TestSetupLogger_WritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	cfg := &config.Config{LogLevel: "debug", LogFile: path, LogMaxSizeMB: 1}

	logger, closer := SetupLogger(cfg)
	logger.Info("hello")
	require.NoError(t, closer.Close())

	assert.FileExists(t, path)
}
