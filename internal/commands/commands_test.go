package commands

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fincontrol-dev/fincontrol/internal/auditlog"
	"github.com/fincontrol-dev/fincontrol/internal/config"
)

func runFincontrol(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := runFincontrol(t, args...)
	require.NoError(t, err, out)
	return out
}

func fixClock(t *testing.T, at time.Time) {
	t.Helper()
	prev := now
	now = func() time.Time { return at }
	t.Cleanup(func() { now = prev })
}

// newProject initializes a csv project with one account and one card.
func newProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	mustRun(t, "init", dir, "--name", "Ana")
	mustRun(t, "--repo", dir, "account", "add", "--id", "acc-1", "--name", "Nubank", "--balance", "1000")
	mustRun(t, "--repo", dir, "card", "add", "--id", "card-1", "--name", "Platinum",
		"--limit", "1000", "--closing", "5", "--due", "12")
	return dir
}

// firstID returns the first column of the first data row of a table.
func firstID(t *testing.T, table string) string {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(table), "\n")
	require.GreaterOrEqual(t, len(lines), 2, table)
	return strings.Fields(lines[1])[0]
}

func TestInit_CreatesStructure(t *testing.T) {
	dir := t.TempDir()
	out := mustRun(t, "init", dir, "--name", "Ana")
	assert.Contains(t, out, "Initialized fincontrol project")

	for _, d := range []string{"logs", "import", filepath.Join("import", "processed"), "data"} {
		info, err := os.Stat(filepath.Join(dir, d))
		require.NoError(t, err, "directory %s should exist", d)
		assert.True(t, info.IsDir())
	}

	cfg, err := config.Load(filepath.Join(dir, config.FileName))
	require.NoError(t, err)
	assert.Equal(t, "Ana", cfg.Profile.Name)
	assert.Equal(t, config.DriverCSV, cfg.Storage.Driver)

	gi, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
	require.NoError(t, err)
	assert.Contains(t, string(gi), ".env")

	entries, err := auditlog.Read(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "init", entries[0].Action)
}

func TestInit_SeedsCategories(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, "init", dir, "--name", "Ana")

	out := mustRun(t, "--repo", dir, "category", "list", "--type", "income")
	assert.Contains(t, out, "r-salario")
	assert.NotContains(t, out, "d-lazer")
}

func TestInit_RefusesExistingProject(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, "init", dir, "--name", "Ana")

	_, err := runFincontrol(t, "init", dir, "--name", "Ana")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestInit_SQLite(t *testing.T) {
	dir := t.TempDir()
	out := mustRun(t, "init", dir, "--name", "Ana", "--driver", "sqlite")
	assert.Contains(t, out, "sqlite storage")

	_, err := os.Stat(filepath.Join(dir, "data", "fincontrol.db"))
	require.NoError(t, err)

	mustRun(t, "--repo", dir, "account", "add", "--id", "acc-1", "--name", "Nubank", "--balance", "250.5")
	out = mustRun(t, "--repo", dir, "account", "list")
	assert.Contains(t, out, "acc-1")
	assert.Contains(t, out, "R$ 250,50")
}

func TestInit_GitVersioning(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := t.TempDir()
	mustRun(t, "init", dir, "--name", "Ana", "--git")
	mustRun(t, "--repo", dir, "account", "add", "--id", "acc-1", "--name", "Nubank")

	log := exec.Command("git", "log", "--format=%s")
	log.Dir = dir
	out, err := log.Output()
	require.NoError(t, err)
	assert.Equal(t, "account.add: Nubank\ninit: Ana", strings.TrimSpace(string(out)))
}

func TestCommands_RequireProject(t *testing.T) {
	_, err := runFincontrol(t, "--repo", t.TempDir(), "account", "list")
	require.Error(t, err)
}

func TestTx_InstallmentsOnCard(t *testing.T) {
	dir := newProject(t)
	fixClock(t, time.Date(2025, 1, 15, 9, 0, 0, 0, time.Local))

	out := mustRun(t, "--repo", dir, "tx", "add", "--category", "Lazer", "--amount", "100",
		"--installments", "3", "--card", "card-1", "--date", "2025-01-10", "--notes", "Show")
	assert.Contains(t, out, "1/3")
	assert.Contains(t, out, "3/3")
	assert.Contains(t, out, "R$ 33,34")
	assert.Contains(t, out, "10/03/2025")

	out = mustRun(t, "--repo", dir, "tx", "list", "--month", "2025-02")
	assert.Contains(t, out, "2/3")
	assert.NotContains(t, out, "1/3")

	out = mustRun(t, "--repo", dir, "card", "list")
	assert.Contains(t, out, "R$ 900,00", "available credit after a 100.00 purchase")

	out = mustRun(t, "--repo", dir, "check")
	assert.Contains(t, out, "OK")
}

func TestTx_IncomeUpdatesBalance(t *testing.T) {
	dir := newProject(t)

	mustRun(t, "--repo", dir, "tx", "add", "--type", "income", "--category", "r-salario",
		"--amount", "500", "--account", "acc-1", "--date", "2025-01-20")

	out := mustRun(t, "--repo", dir, "account", "list")
	assert.Contains(t, out, "R$ 1.500,00")
}

func TestTx_Rejected(t *testing.T) {
	dir := newProject(t)

	tests := []struct {
		name string
		args []string
	}{
		{"unknown card", []string{"--category", "d-lazer", "--amount", "10", "--card", "nope"}},
		{"unknown category", []string{"--category", "Viagem", "--amount", "10"}},
		{"category of wrong type", []string{"--category", "r-salario", "--amount", "10"}},
		{"bad amount", []string{"--category", "d-lazer", "--amount", "abc"}},
		{"zero installments", []string{"--category", "d-lazer", "--amount", "10", "--installments", "0"}},
		{"fewer cents than installments", []string{"--category", "d-lazer", "--amount", "0.02", "--installments", "3", "--card", "card-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--repo", dir, "tx", "add", "--date", "2025-01-10"}, tt.args...)
			_, err := runFincontrol(t, args...)
			require.Error(t, err)
		})
	}

	out := mustRun(t, "--repo", dir, "tx", "list")
	assert.Equal(t, 1, strings.Count(strings.TrimSpace(out), "\n")+1, "only the header: %s", out)
}

func TestTx_AddHelpMentionsCentRule(t *testing.T) {
	out := mustRun(t, "tx", "add", "--help")
	assert.Contains(t, out, "fewer cents than installments")
}

func TestTx_Parse(t *testing.T) {
	dir := newProject(t)
	fixClock(t, time.Date(2025, 1, 15, 9, 0, 0, 0, time.Local))

	out := mustRun(t, "--repo", dir, "tx", "parse", "--dry-run", "R$ 90,00 Cinema Cartão Platinum 3x")
	assert.Contains(t, out, "expense personal R$ 90,00 in 3 on 15/01/2025, category d-lazer, card platinum")
	assert.NotContains(t, out, "Recorded")

	out = mustRun(t, "--repo", dir, "tx", "parse", "R$", "90,00", "Cinema", "Cartão", "Platinum", "3x")
	assert.Contains(t, out, "Recorded 3 records")

	out = mustRun(t, "--repo", dir, "tx", "list", "--month", "2025-03")
	assert.Contains(t, out, "3/3")
	assert.Contains(t, out, "R$ 30,00")
	assert.Contains(t, out, "card-1")

	out = mustRun(t, "--repo", dir, "tx", "parse", "--account", "acc-1", "5000 salário")
	assert.Contains(t, out, "Recorded 1 records")
	out = mustRun(t, "--repo", dir, "account", "list")
	assert.Contains(t, out, "R$ 6.000,00")

	_, err := runFincontrol(t, "--repo", dir, "tx", "parse", "R$ 10 uber cartão Bradesco")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no card matches")
}

func TestAccount_Edit(t *testing.T) {
	dir := newProject(t)

	out := mustRun(t, "--repo", dir, "account", "edit", "acc-1", "--name", "Nubank PJ", "--origin", "business")
	assert.Contains(t, out, "Updated account Nubank PJ (acc-1)")

	out = mustRun(t, "--repo", dir, "account", "list")
	assert.Regexp(t, `acc-1\s+Nubank PJ\s+business\s+R\$ 1\.000,00`, out, "balance untouched")

	mustRun(t, "--repo", dir, "account", "edit", "acc-1", "--balance", "250,10")
	out = mustRun(t, "--repo", dir, "account", "list")
	assert.Contains(t, out, "R$ 250,10")

	_, err := runFincontrol(t, "--repo", dir, "account", "edit", "nope", "--name", "x")
	require.Error(t, err)
	_, err = runFincontrol(t, "--repo", dir, "account", "edit", "acc-1", "--origin", "family")
	require.Error(t, err)

	entries, err := auditlog.Read(dir)
	require.NoError(t, err)
	var edits int
	for _, e := range entries {
		if e.Action == "account.edit" {
			edits++
		}
	}
	assert.Equal(t, 2, edits)
}

func TestCard_Edit(t *testing.T) {
	dir := newProject(t)

	mustRun(t, "--repo", dir, "card", "edit", "card-1", "--closing", "25", "--bank", "Nubank")
	out := mustRun(t, "--repo", dir, "card", "list")
	assert.Regexp(t, `card-1\s+Platinum\s+Nubank\s+personal\s+25\s+12\s+R\$ 1\.000,00`, out)

	_, err := runFincontrol(t, "--repo", dir, "card", "edit", "card-1", "--due", "32")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "due day 32")

	out = mustRun(t, "--repo", dir, "card", "list")
	assert.Regexp(t, `25\s+12`, out, "rejected edit leaves the card as it was")
}

func TestCategory_Edit(t *testing.T) {
	dir := newProject(t)

	mustRun(t, "--repo", dir, "category", "edit", "d-lazer", "--name", "Diversão")
	out := mustRun(t, "--repo", dir, "category", "list", "--type", "expense")
	assert.Contains(t, out, "Diversão")

	mustRun(t, "--repo", dir, "tx", "add", "--category", "d-lazer", "--amount", "10", "--date", "2025-01-10")
	_, err := runFincontrol(t, "--repo", dir, "category", "edit", "d-lazer", "--type", "income")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "category in use")

	mustRun(t, "--repo", dir, "category", "edit", "d-marketing", "--type", "income")
	out = mustRun(t, "--repo", dir, "category", "list", "--type", "income")
	assert.Contains(t, out, "d-marketing")
}

func TestConfig_SetAndShow(t *testing.T) {
	dir := newProject(t)
	mustRun(t, "--repo", dir, "tx", "add", "--category", "d-lazer", "--amount", "10", "--date", "2025-01-10")

	out := mustRun(t, "--repo", dir, "config", "set", "profile.date_format", "yyyy-mm-dd")
	assert.Contains(t, out, "Set profile.date_format")
	mustRun(t, "--repo", dir, "config", "set", "profile.name", "Ana Souza")

	out = mustRun(t, "--repo", dir, "tx", "list")
	assert.Contains(t, out, "2025-01-10")

	out = mustRun(t, "--repo", dir, "config", "show")
	assert.Contains(t, out, "date_format: yyyy-mm-dd")
	assert.Contains(t, out, "name: Ana Souza")

	_, err := runFincontrol(t, "--repo", dir, "config", "set", "storage.driver", "sqlite")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown key")
	_, err = runFincontrol(t, "--repo", dir, "config", "set", "profile.date_format", "dd.mm.yy")
	require.Error(t, err)

	cfg, err := config.Load(filepath.Join(dir, config.FileName))
	require.NoError(t, err)
	assert.Equal(t, "yyyy-mm-dd", cfg.Profile.DateFormat)
	assert.Equal(t, config.DriverCSV, cfg.Storage.Driver)

	entries, err := auditlog.Read(dir)
	require.NoError(t, err)
	last := entries[len(entries)-1]
	assert.Equal(t, "config.set", last.Action)
	assert.Equal(t, "Ana Souza", last.Actor)
}

func TestReport(t *testing.T) {
	dir := newProject(t)
	mustRun(t, "--repo", dir, "tx", "add", "--category", "d-lazer", "--amount", "300",
		"--installments", "3", "--card", "card-1", "--date", "2025-01-10")
	mustRun(t, "--repo", dir, "tx", "add", "--category", "d-outros", "--origin", "business",
		"--amount", "40", "--date", "2025-01-11")
	mustRun(t, "--repo", dir, "tx", "add", "--type", "income", "--category", "r-salario",
		"--amount", "500", "--account", "acc-1", "--date", "2025-01-20")

	out := mustRun(t, "--repo", dir, "report", "--month", "2025-01", "--months", "2")
	assert.Contains(t, out, "Expenses by category, 2025-01")
	assert.Regexp(t, `Lazer\s+R\$ 100,00`, out)
	assert.Regexp(t, `Outros\s+R\$ 40,00`, out)
	assert.Regexp(t, `2024-12\s+R\$ 0,00\s+R\$ 0,00`, out)
	assert.Regexp(t, `2025-01\s+R\$ 500,00\s+R\$ 140,00`, out)
	assert.NotContains(t, out, "2024-11")
	assert.Regexp(t, `Personal\s+R\$ 100,00`, out)
	assert.Regexp(t, `Business\s+R\$ 40,00`, out)

	out = mustRun(t, "--repo", dir, "report", "--month", "2025-01", "--origin", "business")
	assert.NotContains(t, out, "Lazer")
	assert.Contains(t, out, "2024-08", "six months by default")
	assert.Regexp(t, `Personal\s+R\$ 100,00`, out)

	_, err := runFincontrol(t, "--repo", dir, "report", "--months", "0")
	require.Error(t, err)
}

func TestTx_RemoveGroup(t *testing.T) {
	dir := newProject(t)

	out := mustRun(t, "--repo", dir, "tx", "add", "--category", "d-lazer", "--amount", "90",
		"--installments", "3", "--card", "card-1", "--date", "2025-01-10")
	member := firstID(t, out)

	out = mustRun(t, "--repo", dir, "tx", "rm", member, "--group")
	assert.Contains(t, out, "Removed 3 installments")

	out = mustRun(t, "--repo", dir, "tx", "list", "--card", "card-1")
	assert.NotContains(t, out, "R$ 30,00")
}

func TestTx_RemoveInstallmentBreaksGroup(t *testing.T) {
	dir := newProject(t)

	out := mustRun(t, "--repo", dir, "tx", "add", "--category", "d-lazer", "--amount", "90",
		"--installments", "3", "--card", "card-1", "--date", "2025-01-10")
	member := firstID(t, out)

	mustRun(t, "--repo", dir, "tx", "rm", member)

	out, err := runFincontrol(t, "--repo", dir, "check")
	require.Error(t, err)
	assert.Contains(t, out, "invariant 1")
}

func TestStatement_ShowAndPay(t *testing.T) {
	dir := newProject(t)
	mustRun(t, "--repo", dir, "tx", "add", "--category", "d-lazer", "--amount", "300",
		"--installments", "3", "--card", "card-1", "--date", "2025-01-10")

	out := mustRun(t, "--repo", dir, "statement", "show", "--card", "card-1", "--month", "2025-02")
	assert.Contains(t, out, "Statement 2025-02")
	assert.Contains(t, out, "[pending]")
	assert.Contains(t, out, "Closes 05/02/2025, due 12/02/2025")
	assert.Contains(t, out, "2/3")
	assert.Contains(t, out, "Total R$ 100,00")

	out = mustRun(t, "--repo", dir, "statement", "pay", "--card", "card-1", "--month", "2025-02")
	assert.Contains(t, out, "marked paid")

	out = mustRun(t, "--repo", dir, "statement", "show", "--card", "card-1", "--month", "2025-02")
	assert.Contains(t, out, "[paid]")

	mustRun(t, "--repo", dir, "statement", "pay", "--card", "card-1", "--month", "2025-02", "--undo")
	out = mustRun(t, "--repo", dir, "statement", "show", "--card", "card-1", "--month", "2025-02")
	assert.Contains(t, out, "[pending]")
}

func TestStatement_Upcoming(t *testing.T) {
	dir := newProject(t)
	mustRun(t, "--repo", dir, "tx", "add", "--category", "d-lazer", "--amount", "300",
		"--installments", "3", "--card", "card-1", "--date", "2025-01-10")

	out := mustRun(t, "--repo", dir, "statement", "show", "--card", "card-1", "--month", "2025-03", "--count", "2")
	assert.Contains(t, out, "Statement 2025-03")
	assert.Contains(t, out, "Statement 2025-04")
	assert.Contains(t, out, "Total R$ 0,00")
}

func TestStatement_PayUnknownCard(t *testing.T) {
	dir := newProject(t)

	_, err := runFincontrol(t, "--repo", dir, "statement", "pay", "--card", "nope", "--month", "2025-02")
	require.Error(t, err)
}

func TestDashboard(t *testing.T) {
	dir := newProject(t)
	mustRun(t, "--repo", dir, "tx", "add", "--category", "d-lazer", "--amount", "300",
		"--installments", "3", "--card", "card-1", "--date", "2025-01-10")
	mustRun(t, "--repo", dir, "tx", "add", "--type", "income", "--category", "r-salario",
		"--amount", "500", "--account", "acc-1", "--date", "2025-01-20")

	out := mustRun(t, "--repo", dir, "dashboard", "--month", "2025-01")
	assert.Contains(t, out, "2025-01")
	assert.Regexp(t, `Balance\s+R\$ 1\.500,00`, out)
	assert.Regexp(t, `Income\s+R\$ 500,00`, out)
	assert.Regexp(t, `Expenses\s+R\$ 100,00`, out)
	assert.Regexp(t, `Net\s+R\$ 400,00`, out)
	assert.Regexp(t, `Open statements\s+R\$ 100,00`, out)

	out = mustRun(t, "--repo", dir, "dashboard", "--month", "2025-01", "--origin", "business")
	assert.Regexp(t, `Income\s+R\$ 0,00`, out)

	_, err := runFincontrol(t, "--repo", dir, "dashboard", "--origin", "family")
	require.Error(t, err)
}

func TestImport_PendingFiles(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, "init", dir, "--name", "Ana")

	data, err := os.ReadFile(filepath.Join("..", "..", "testdata", "legacy_backup.json"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "import", "backup.json"), data, 0o644))

	out := mustRun(t, "--repo", dir, "import")
	assert.Contains(t, out, "Imported backup.json")

	_, err = os.Stat(filepath.Join(dir, "import", "processed", "backup.json"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "import", "backup.json"))
	assert.True(t, os.IsNotExist(err))

	out = mustRun(t, "--repo", dir, "account", "list")
	assert.Contains(t, out, "R$ 12.450,50", "legacy balances are taken as-is")

	out = mustRun(t, "--repo", dir, "statement", "show", "--card", "1736000000003-i7j8k9l", "--month", "2025-01")
	assert.Contains(t, out, "[paid]")

	out = mustRun(t, "--repo", dir, "import")
	assert.Contains(t, out, "Nothing to import")
}

func TestImport_LegacyTwice(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, "init", dir, "--name", "Ana")
	path := filepath.Join("..", "..", "testdata", "legacy_backup.json")

	out := mustRun(t, "--repo", dir, "import", path)
	assert.NotContains(t, out, "already imported")

	out = mustRun(t, "--repo", dir, "import", path)
	assert.Contains(t, out, "0 entries (0 records), 4 already imported")

	out = mustRun(t, "--repo", dir, "check")
	assert.Contains(t, out, "OK")
}

func TestImport_MessageFile(t *testing.T) {
	dir := newProject(t)
	fixClock(t, time.Date(2025, 1, 15, 9, 0, 0, 0, time.Local))
	msgs := "R$ 120,00 Restaurante Cartão Platinum 3x\n# skipped\n45 uber 02/01/2025\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "import", "chat.txt"), []byte(msgs), 0o644))

	out := mustRun(t, "--repo", dir, "import")
	assert.Contains(t, out, "Imported chat.txt")
	assert.Contains(t, out, "2 entries (4 records)")

	out = mustRun(t, "--repo", dir, "tx", "list", "--month", "2025-01")
	assert.Contains(t, out, "02/01/2025")
	assert.Contains(t, out, "15/01/2025")
}

func TestImport_CSVFile(t *testing.T) {
	dir := newProject(t)

	out := mustRun(t, "--repo", dir, "import", filepath.Join("..", "..", "testdata", "import.csv"))
	assert.Contains(t, out, "Imported import.csv")
	assert.Contains(t, out, "3 entries (5 records)")

	out = mustRun(t, "--repo", dir, "check")
	assert.Contains(t, out, "OK")
}

func TestImport_UnknownFormat(t *testing.T) {
	dir := newProject(t)
	path := filepath.Join(t.TempDir(), "data.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	_, err := runFincontrol(t, "--repo", dir, "import", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--format")
}

func TestLog_ListsActions(t *testing.T) {
	dir := newProject(t)
	mustRun(t, "--repo", dir, "tx", "add", "--category", "d-lazer", "--amount", "10", "--date", "2025-01-10")

	out := mustRun(t, "--repo", dir, "log")
	assert.Contains(t, out, "init")
	assert.Contains(t, out, "account.add")
	assert.Contains(t, out, "tx.add")

	out = mustRun(t, "--repo", dir, "log", "--limit", "1")
	assert.Contains(t, out, "tx.add")
	assert.NotContains(t, out, "account.add")
}
