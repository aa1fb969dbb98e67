package mcp

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/felixgeelhaar/mcp-go"
	"github.com/felixgeelhaar/mcp-go/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodthrift/paysmallsmall/adapter/cli"
	internalApp "github.com/foodthrift/paysmallsmall/internal/app"
	"github.com/foodthrift/paysmallsmall/internal/session"
	sharedApplication "github.com/foodthrift/paysmallsmall/internal/shared/application"
	"github.com/foodthrift/paysmallsmall/internal/storage"
	"github.com/foodthrift/paysmallsmall/pkg/config"
)

var testNow = time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

func newTestToolset(t *testing.T) *toolset {
	t.Helper()
	cfg := &config.Config{
		AppEnv:              "test",
		UserID:              "user_001",
		MonitorScanInterval: time.Hour,
		MonitorTickInterval: 10 * time.Millisecond,
		UrgencyWindowDays:   3,
		SettlementLatency:   5 * time.Millisecond,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c, err := internalApp.NewContainer(context.Background(), cfg, logger,
		internalApp.WithStore(storage.NewMemoryStore()),
		internalApp.WithClock(sharedApplication.FixedClock(testNow)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return newToolset(ToolDependencies{App: cli.NewApp(c), Logger: logger})
}

func TestRegisterCLITools_ListTools(t *testing.T) {
	srv := mcp.NewServer(mcp.ServerInfo{
		Name:    "test",
		Version: "1.0.0",
		Capabilities: mcp.Capabilities{
			Tools: true,
		},
	})

	app := &cli.App{}
	require.NoError(t, RegisterCLITools(srv, ToolDependencies{App: app}))

	tc := testutil.NewTestClient(t, srv)
	defer tc.Close()

	tools, err := tc.ListTools()
	require.NoError(t, err)

	names := make(map[any]bool, len(tools))
	for _, tool := range tools {
		names[tool["name"]] = true
	}
	for _, want := range []string{
		"cli.health", "plans.list", "plans.add", "subs.enroll",
		"payments.status", "payments.pay", "session.login", "export.workbook",
	} {
		assert.True(t, names[want], "%s should be registered", want)
	}
}

func TestRegisterCLITools_RequiresApp(t *testing.T) {
	srv := mcp.NewServer(mcp.ServerInfo{Name: "test", Version: "1.0.0"})
	assert.Error(t, RegisterCLITools(srv, ToolDependencies{}))
	assert.Error(t, RegisterCLITools(nil, ToolDependencies{App: &cli.App{}}))
}

func TestToolset_NotInitialized(t *testing.T) {
	ts := newToolset(ToolDependencies{App: &cli.App{}})

	_, err := ts.listPlans(context.Background(), planListInput{})
	assert.ErrorIs(t, err, errNotInitialized)
	_, err = ts.pay(context.Background(), payInput{})
	assert.ErrorIs(t, err, errNotInitialized)
}

func TestToolset_EnrollAndPay(t *testing.T) {
	ts := newTestToolset(t)
	ctx := context.Background()

	status, err := ts.dueStatus(ctx, struct{}{})
	require.NoError(t, err)
	assert.Equal(t, true, status["due"])
	assert.Equal(t, true, status["imminent"])
	assert.Equal(t, int64(5000), status["amount"])

	enrolled, err := ts.enroll(ctx, enrollInput{PlanID: "plan_2"})
	require.NoError(t, err)
	assert.Equal(t, "plan_2", enrolled["plan_id"])

	subs, err := ts.listSubscriptions(ctx, subsListInput{})
	require.NoError(t, err)
	assert.Len(t, subs, 2)

	paid, err := ts.pay(ctx, payInput{Provider: "flutterwave"})
	require.NoError(t, err)
	assert.Equal(t, true, paid["paid"])
	tx := paid["transaction"].(map[string]any)
	assert.Equal(t, "sub_1", tx["subscription_id"])
	assert.Equal(t, int64(5000), tx["amount"])

	sum, err := ts.summary(ctx, struct{}{})
	require.NoError(t, err)
	assert.Equal(t, int64(50000), sum["total_saved"])

	txs, err := ts.transactions(ctx, historyInput{Limit: 1})
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, tx["ref"], txs[0]["ref"])
}

func TestToolset_PayRejectsUnknownProvider(t *testing.T) {
	ts := newTestToolset(t)

	_, err := ts.pay(context.Background(), payInput{Provider: "cash"})
	assert.Error(t, err)
}

func TestToolset_CancelThenNothingDue(t *testing.T) {
	ts := newTestToolset(t)
	ctx := context.Background()

	cancelled, err := ts.transition(ctx, subIDInput{ID: "sub_1"}, false)
	require.NoError(t, err)
	assert.EqualValues(t, "CANCELLED", cancelled["status"])

	status, err := ts.dueStatus(ctx, struct{}{})
	require.NoError(t, err)
	assert.Equal(t, false, status["due"])

	paid, err := ts.pay(ctx, payInput{})
	require.NoError(t, err)
	assert.Equal(t, false, paid["paid"])
}

func TestToolset_AdminOnlyPlanTools(t *testing.T) {
	ts := newTestToolset(t)
	ctx := context.Background()

	_, err := ts.addPlan(ctx, planAddInput{Name: "Yam Tubers", Amount: 2500, DurationInWeeks: 8})
	require.Error(t, err)

	login, err := ts.login(ctx, loginInput{Role: "admin"})
	require.NoError(t, err)
	assert.Equal(t, session.MockAdmin().ID, login["user"].(session.User).ID)

	added, err := ts.addPlan(ctx, planAddInput{Name: "Yam Tubers", Amount: 2500, DurationInWeeks: 8, Frequency: "weekly"})
	require.NoError(t, err)
	assert.Equal(t, int64(20000), added["target"])

	plans, err := ts.listPlans(ctx, planListInput{})
	require.NoError(t, err)
	require.Len(t, plans, 5)
	assert.Equal(t, "Yam Tubers", plans[0].Name)

	archived, err := ts.archivePlan(ctx, planArchiveInput{ID: plans[0].ID})
	require.NoError(t, err)
	assert.Equal(t, true, archived["archived"])

	missing, err := ts.archivePlan(ctx, planArchiveInput{ID: "plan_missing"})
	require.NoError(t, err)
	assert.Equal(t, false, missing["archived"])

	gone, err := ts.listPlans(ctx, planListInput{Archived: true})
	require.NoError(t, err)
	require.Len(t, gone, 1)
	assert.Equal(t, "Rotation", gone[0].DeactivationReason)
}

func TestToolset_SessionTools(t *testing.T) {
	ts := newTestToolset(t)
	ctx := context.Background()

	who, err := ts.whoami(ctx, struct{}{})
	require.NoError(t, err)
	assert.Equal(t, false, who["signed_in"])

	_, err = ts.login(ctx, loginInput{Role: "STAFF"})
	assert.Error(t, err)

	_, err = ts.login(ctx, loginInput{Role: "customer"})
	require.NoError(t, err)
	who, err = ts.whoami(ctx, struct{}{})
	require.NoError(t, err)
	assert.Equal(t, true, who["signed_in"])
}

func TestToolset_AdviceFallsBackWithoutKey(t *testing.T) {
	ts := newTestToolset(t)

	out, err := ts.advice(context.Background(), struct{}{})
	require.NoError(t, err)
	assert.NotEmpty(t, out["advice"])

	_, err = ts.briefing(context.Background(), struct{}{})
	assert.Error(t, err, "briefing is for administrators")
}

func TestToolset_ExportWorkbook(t *testing.T) {
	ts := newTestToolset(t)
	path := filepath.Join(t.TempDir(), "ledger.xlsx")

	out, err := ts.exportWorkbook(context.Background(), exportInput{Path: path})
	require.NoError(t, err)
	assert.Equal(t, path, out["path"])
	assert.Equal(t, 1, out["subscriptions"])

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}
