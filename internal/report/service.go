// Package report renders a deployed-wallet ledger as a standalone HTML page
// by writing it out as AsciiDoc and converting that with libasciidoc.
package report

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/bytesparadise/libasciidoc"
	"github.com/bytesparadise/libasciidoc/pkg/configuration"

	"xnet.company/lockup/internal/console"
	"xnet.company/lockup/internal/ledger"
)

const addressStyle = `<style>
.addr-letter { color: #b58900; }
.addr-number { color: #268bd2; }
</style>`

type Service struct {
	printer *console.Printer
	now     func() time.Time
}

func NewService() *Service {
	return &Service{
		printer: console.Discard(),
		now:     time.Now,
	}
}

// Document returns the AsciiDoc source for l.
func (s *Service) Document(title string, l *ledger.Ledger) string {
	var b strings.Builder
	fmt.Fprintf(&b, "= %s\n\n", title)
	fmt.Fprintf(&b, "Generated %s from %d %s wallet(s).\n\n",
		console.FormatTime(s.now().Unix()), l.Count, l.Variant.ContractName())

	if l.Count == 0 {
		b.WriteString("No wallets deployed.\n")
		return b.String()
	}

	b.WriteString("++++\n" + addressStyle + "\n++++\n\n")

	escrow := l.Variant.Escrow()
	if escrow {
		b.WriteString("[cols=\"1,4,3,3,4,4\",options=\"header\"]\n|===\n|# |Beneficiary |Start |End |Wallet |Agent\n")
	} else {
		b.WriteString("[cols=\"1,4,3,3,4\",options=\"header\"]\n|===\n|# |Beneficiary |Start |End |Wallet\n")
	}
	for i, d := range l.Entries() {
		bene := d.Beneficiary
		fmt.Fprintf(&b, "|%d |%s |%s |%s |%s", i+1,
			s.address(bene.Address),
			console.FormatTime(bene.Start),
			console.FormatTime(bene.End()),
			s.address(d.Wallet))
		if escrow {
			fmt.Fprintf(&b, " |%s", s.address(d.Agent))
		}
		b.WriteString("\n")
	}
	b.WriteString("|===\n")
	return b.String()
}

func (s *Service) address(addr string) string {
	return "+++<code>" + s.printer.ColorAddress(addr, true) + "</code>+++"
}

// Render writes l to w as a complete HTML document.
func (s *Service) Render(w io.Writer, title string, l *ledger.Ledger) error {
	config := configuration.NewConfiguration(
		configuration.WithHeaderFooter(true),
		configuration.WithAttribute("nofooter", true),
	)

	_, err := libasciidoc.Convert(strings.NewReader(s.Document(title, l)), w, config)
	if err != nil {
		return fmt.Errorf("failed to convert asciidoc: %w", err)
	}
	return nil
}

// WriteFile renders l to the HTML file at path.
func (s *Service) WriteFile(path, title string, l *ledger.Ledger) error {
	output := bytes.NewBuffer(nil)
	if err := s.Render(output, title, l); err != nil {
		return err
	}
	if err := os.WriteFile(path, output.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}
	return nil
}
