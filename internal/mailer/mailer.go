package mailer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"

	"github.com/sysu-ecnc-dev/shelf-allocator/backend/internal/domain"
	"github.com/sysu-ecnc-dev/shelf-allocator/backend/internal/optimizer"
	"github.com/sysu-ecnc-dev/shelf-allocator/backend/internal/report"
	"github.com/wneessen/go-mail"
)

var (
	ErrUnsupportedType = errors.New("不支持的邮件类型")
	ErrRunNotFinished  = errors.New("优化任务尚未完成")
)

// Inbound 是从邮件队列中读出的消息，Data 根据 Type 再解析
type Inbound struct {
	Type string          `json:"type"`
	To   string          `json:"to"`
	Data json.RawMessage `json:"data"`
}

// ReportSource 提供生成报告所需的数据，由 repository.Repository 实现
type ReportSource interface {
	GetAllocationRunByID(id int64) (*domain.AllocationRun, error)
	GetAllocationPlacements(runID int64) ([]domain.AllocationPlacement, error)
	GetCatalog() (*domain.Catalog, error)
}

type reportView struct {
	RunID       int64
	Generations int32
	Penalty     float64
	Violations  int
	Products    int
	Rules       []optimizer.RulePenalty
	Attachment  string
}

type Composer struct {
	from     string
	source   ReportSource
	template *template.Template
}

func NewComposer(from string, source ReportSource, tmpl *template.Template) *Composer {
	return &Composer{
		from:     from,
		source:   source,
		template: tmpl,
	}
}

// Compose 根据队列消息构建邮件
func (c *Composer) Compose(in *Inbound) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(c.from); err != nil {
		return nil, fmt.Errorf("无法设置邮件发件人: %w", err)
	}
	if err := m.To(in.To); err != nil {
		return nil, fmt.Errorf("无法设置邮件收件人: %w", err)
	}

	switch in.Type {
	case domain.MailTypeAllocationReport:
		if err := c.allocationReport(m, in.Data); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, in.Type)
	}

	return m, nil
}

func (c *Composer) allocationReport(m *mail.Msg, raw json.RawMessage) error {
	var data domain.AllocationReportMailData
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("邮件数据反序列化失败: %w", err)
	}

	run, err := c.source.GetAllocationRunByID(data.RunID)
	if err != nil {
		return err
	}
	if run.Status != domain.RunStatusFinished {
		return fmt.Errorf("%w: %d", ErrRunNotFinished, run.ID)
	}

	placements, err := c.source.GetAllocationPlacements(run.ID)
	if err != nil {
		return err
	}
	run.Placements = placements

	catalog, err := c.source.GetCatalog()
	if err != nil {
		return err
	}

	rows, summary, err := report.FromRun(catalog, run)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := report.WriteExcel(&buf, rows, summary); err != nil {
		return err
	}

	attachment := fmt.Sprintf("allocation_%d.xlsx", run.ID)
	if err := m.AttachReader(attachment, &buf); err != nil {
		return err
	}

	view := reportView{
		RunID:       run.ID,
		Generations: summary.Generations,
		Penalty:     summary.Penalty,
		Violations:  summary.Breakdown.Violations,
		Products:    len(rows),
		Rules:       nonZeroRules(summary.Breakdown),
		Attachment:  attachment,
	}
	if err := m.SetBodyHTMLTemplate(c.template, view); err != nil {
		return fmt.Errorf("无法设置邮件正文: %w", err)
	}
	m.Subject(fmt.Sprintf("货架分配系统 - 优化任务 #%d 报告", run.ID))

	return nil
}

func nonZeroRules(b optimizer.Breakdown) []optimizer.RulePenalty {
	rules := []optimizer.RulePenalty{}
	for _, rule := range b.Rules() {
		if rule.Penalty > 0 {
			rules = append(rules, rule)
		}
	}
	return rules
}
