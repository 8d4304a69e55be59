package mailer

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"html/template"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/shelf-allocator/backend/internal/domain"
	"github.com/sysu-ecnc-dev/shelf-allocator/backend/internal/report"
)

type fakeSource struct {
	run        *domain.AllocationRun
	placements []domain.AllocationPlacement
	catalog    *domain.Catalog
}

func (s *fakeSource) GetAllocationRunByID(id int64) (*domain.AllocationRun, error) {
	if s.run == nil || s.run.ID != id {
		return nil, sql.ErrNoRows
	}
	copied := *s.run
	return &copied, nil
}

func (s *fakeSource) GetAllocationPlacements(int64) ([]domain.AllocationPlacement, error) {
	return s.placements, nil
}

func (s *fakeSource) GetCatalog() (*domain.Catalog, error) {
	return s.catalog, nil
}

func newComposer(t *testing.T, status domain.RunStatus) *Composer {
	t.Helper()

	c, err := domain.NewCatalog(
		[]domain.Shelf{{ID: "S1", Capacity: 10}, {ID: "S2", Capacity: 10}},
		[]domain.Product{{ID: "P1", Weight: 1}, {ID: "P2", Weight: 1, HighDemand: true}},
	)
	require.NoError(t, err)

	source := &fakeSource{
		run: &domain.AllocationRun{ID: 1, Status: status, Generations: 10},
		placements: []domain.AllocationPlacement{
			{Position: 0, ProductID: "P1", ShelfID: "S1"},
			{Position: 1, ProductID: "P2", ShelfID: "S2"},
		},
		catalog: c,
	}

	tmpl := template.Must(template.New("report").Parse(`<p>{{.RunID}} {{.Penalty}} {{.Attachment}}</p>`))
	return NewComposer("noreply@example.com", source, tmpl)
}

func inbound(t *testing.T, typ string, data any) *Inbound {
	t.Helper()

	raw, err := json.Marshal(data)
	require.NoError(t, err)
	return &Inbound{Type: typ, To: "manager@example.com", Data: raw}
}

func TestComposeAllocationReport(t *testing.T) {
	c := newComposer(t, domain.RunStatusFinished)

	m, err := c.Compose(inbound(t, domain.MailTypeAllocationReport, domain.AllocationReportMailData{RunID: 1}))
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = m.WriteTo(&buf)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "manager@example.com")
	assert.Contains(t, out, "allocation_1.xlsx")
	assert.Contains(t, out, "text/html")
}

func TestComposeRejectsUnfinishedRun(t *testing.T) {
	c := newComposer(t, domain.RunStatusRunning)

	_, err := c.Compose(inbound(t, domain.MailTypeAllocationReport, domain.AllocationReportMailData{RunID: 1}))
	assert.ErrorIs(t, err, ErrRunNotFinished)
}

func TestComposeUnknownRun(t *testing.T) {
	c := newComposer(t, domain.RunStatusFinished)

	_, err := c.Compose(inbound(t, domain.MailTypeAllocationReport, domain.AllocationReportMailData{RunID: 9}))
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestComposeUnsupportedType(t *testing.T) {
	c := newComposer(t, domain.RunStatusFinished)

	_, err := c.Compose(inbound(t, "reset_password", map[string]string{}))
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestComposeInvalidRecipient(t *testing.T) {
	c := newComposer(t, domain.RunStatusFinished)

	in := inbound(t, domain.MailTypeAllocationReport, domain.AllocationReportMailData{RunID: 1})
	in.To = "not an address"
	_, err := c.Compose(in)
	assert.Error(t, err)
}

func TestComposeRejectsChangedCatalog(t *testing.T) {
	c := newComposer(t, domain.RunStatusFinished)

	// 保存的惩罚和按当前目录计算的结果不一致
	stored := 1234.0
	c.source.(*fakeSource).run.BestPenalty = &stored

	_, err := c.Compose(inbound(t, domain.MailTypeAllocationReport, domain.AllocationReportMailData{RunID: 1}))
	assert.ErrorIs(t, err, report.ErrCatalogChanged)
}
