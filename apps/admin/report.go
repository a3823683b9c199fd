package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/mail"
	"text/tabwriter"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/analytics"
)

// riskReport prints the per-class risk split and mails it to the recipients, if any.
func (cli *commandLine) riskReport(recipients []string) error {
	report, err := cli.analyticsSvc.RiskByClass(context.Background())
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err = writeRiskReport(&buf, report); err != nil {
		return err
	}
	if _, err = cli.out.Write(buf.Bytes()); err != nil {
		return err
	}
	if len(recipients) == 0 {
		return nil
	}

	to := make([]mail.Address, 0, len(recipients))
	for _, r := range recipients {
		addr, err := mail.ParseAddress(r)
		if err != nil {
			return fmt.Errorf("invalid recipient %q: %v", r, err)
		}
		to = append(to, *addr)
	}
	return cli.mailSvc.SendMessages(&core.EmailMessage{
		To:      to,
		Subject: "At-risk students report",
		Body:    buf.String(),
	})
}

func writeRiskReport(w io.Writer, report analytics.RiskReport) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "CLASS\tTOTAL\tHIGH RISK (GPA < %.1f)\tLOW RISK\n", analytics.HighRiskGPA)
	for _, c := range report.Classes {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n", c.ClassName, c.Total, c.HighRisk, c.LowRisk)
	}
	fmt.Fprintf(tw, "All\t%d\t%d\t%d\n", report.All.Total, report.All.HighRisk, report.All.LowRisk)
	return tw.Flush()
}
