package excel_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/ecount-sync/internal/infrastructure/excel"
	"github.com/jhoicas/ecount-sync/pkg/logger"
)

func TestFileExporter_EscribeSnapshot(t *testing.T) {
	log, err := logger.New(logger.Config{Env: "production", Level: "error"})
	require.NoError(t, err)

	dir := t.TempDir()
	exporter := excel.NewFileExporter(dir, excel.NewWriter("Inventory", log))

	require.NoError(t, exporter.Export(context.Background(), "inventory_balance-20240215", sampleTable()))

	raw, err := os.ReadFile(filepath.Join(dir, "inventory_balance-20240215.xml"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `ss:Name="Inventory"`)
	assert.Contains(t, string(raw), "A-001")
}
