// Package sru writes the INFO.SRU and BLANKETTER.SRU files used to file a
// K4 form electronically.
package sru

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/guttosm/k4ledger/internal/domain/models"
	"github.com/guttosm/k4ledger/internal/logger"
)

// FormName identifies the form revision in the #BLANKETT record.
const FormName = "K4-2024P4"

const (
	InfoFileName       = "INFO.SRU"
	BlanketterFileName = "BLANKETTER.SRU"
)

// Taxpayer is the identity written to both files.
type Taxpayer struct {
	OrgNr    string
	Name     string
	Address  string
	PostCode string
	City     string
	Email    string
}

// Options tunes BlanketterFile.
type Options struct {
	// LongNames writes the instrument description as beteckning instead of
	// the ticker.
	LongNames bool
	// Now stamps the #IDENTITET record. Defaults to time.Now.
	Now func() time.Time
}

// Section is one part of the K4 form.
type Section struct {
	Name  string
	Rows  int // rows per form
	First int // field code of antal on row 1; row n starts at First+10*(n-1)

	SumProceeds, SumCost, SumGain, SumLoss int
}

var (
	SectionA = Section{Name: "A", Rows: 9, First: 3100, SumProceeds: 3300, SumCost: 3301, SumGain: 3304, SumLoss: 3305}
	SectionC = Section{Name: "C", Rows: 7, First: 3310, SumProceeds: 3400, SumCost: 3401, SumGain: 3403, SumLoss: 3404}
	SectionD = Section{Name: "D", Rows: 7, First: 3410, SumProceeds: 3500, SumCost: 3501, SumGain: 3503, SumLoss: 3504}
)

// CryptoCodes are reported in section D with the options.
var CryptoCodes = map[string]bool{
	"BTC": true,
	"ETH": true,
	"LTC": true,
	"XRP": true,
}

// Classify returns the section a symbol is reported in: currencies in C,
// options and crypto in D, everything else in A.
func Classify(symbol string) Section {
	switch {
	case models.IsCurrency(symbol):
		return SectionC
	case models.IsOption(symbol) || CryptoCodes[symbol]:
		return SectionD
	default:
		return SectionA
	}
}

// InfoFile writes INFO.SRU.
func InfoFile(w io.Writer, tp Taxpayer) error {
	bw := bufio.NewWriter(w)
	lines := []string{
		"#DATABESKRIVNING_START",
		"#PRODUKT SRU",
		"#FILNAMN " + BlanketterFileName,
		"#DATABESKRIVNING_SLUT",
		"#MEDIELEV_START",
		"#ORGNR " + tp.OrgNr,
		"#NAMN " + tp.Name,
		"#ADRESS " + tp.Address,
		"#POSTNR " + tp.PostCode,
		"#POSTORT " + tp.City,
		"#EMAIL " + tp.Email,
		"#MEDIELEV_SLUT",
	}
	for _, l := range lines {
		if _, err := bw.WriteString(l + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// BlanketterFile writes BLANKETTER.SRU for rows.
//
// Rows are split per section into blocks of Section.Rows, each closed by its
// summary fields. Forms are then assembled:
//   - every A block with the next C and D blocks, if any remain
//   - remaining C blocks with the next D block
//   - remaining D blocks alone
//
// Forms are numbered from 1 in field 7014.
func BlanketterFile(w io.Writer, tp Taxpayer, rows []models.K4Row, opts Options) error {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	var a, c, d []models.K4Row
	for _, r := range rows {
		switch Classify(r.Symbol).Name {
		case "A":
			a = append(a, r)
		case "C":
			c = append(c, r)
		default:
			d = append(d, r)
		}
	}
	blocksA := blocks(SectionA, a, opts.LongNames)
	blocksC := blocks(SectionC, c, opts.LongNames)
	blocksD := blocks(SectionD, d, opts.LongNames)

	var forms [][]string
	for _, b := range blocksA {
		form := []string{b}
		if len(blocksC) > 0 {
			form, blocksC = append(form, blocksC[0]), blocksC[1:]
		}
		if len(blocksD) > 0 {
			form, blocksD = append(form, blocksD[0]), blocksD[1:]
		}
		forms = append(forms, form)
	}
	for _, b := range blocksC {
		form := []string{b}
		if len(blocksD) > 0 {
			form, blocksD = append(form, blocksD[0]), blocksD[1:]
		}
		forms = append(forms, form)
	}
	for _, b := range blocksD {
		forms = append(forms, []string{b})
	}

	logger.L().Debug().Int("rows", len(rows)).Int("forms", len(forms)).Msg("sru forms assembled")

	bw := bufio.NewWriter(w)
	for i, form := range forms {
		fmt.Fprintf(bw, "#BLANKETT %s\n", FormName)
		fmt.Fprintf(bw, "#IDENTITET %s %s\n", tp.OrgNr, now().Format("20060102 150405"))
		fmt.Fprintf(bw, "#NAMN %s\n", tp.Name)
		for _, b := range form {
			bw.WriteString(b)
		}
		fmt.Fprintf(bw, "#UPPGIFT 7014 %d\n", i+1)
		bw.WriteString("#BLANKETTSLUT\n")
	}
	bw.WriteString("#FIL_SLUT\n")
	return bw.Flush()
}

// WriteFiles writes INFO.SRU and BLANKETTER.SRU into dir.
func WriteFiles(dir string, tp Taxpayer, rows []models.K4Row, opts Options) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	if err := writeFile(filepath.Join(dir, InfoFileName), func(w io.Writer) error { return InfoFile(w, tp) }); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(dir, BlanketterFileName), func(w io.Writer) error { return BlanketterFile(w, tp, rows, opts) }); err != nil {
		return err
	}
	logger.L().Info().Str("dir", dir).Int("rows", len(rows)).Msg("sru files written")
	return nil
}

func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// blocks renders rows in chunks of s.Rows, each followed by its summary.
func blocks(s Section, rows []models.K4Row, longNames bool) []string {
	var out []string
	for start := 0; start < len(rows); start += s.Rows {
		end := start + s.Rows
		if end > len(rows) {
			end = len(rows)
		}
		var b strings.Builder
		var proceeds, cost int64
		for n, r := range rows[start:end] {
			writeRow(&b, s.First+10*n, r, longNames)
			proceeds += r.Proceeds
			cost += r.CostBasis
		}
		writeSummary(&b, s, proceeds, cost)
		out = append(out, b.String())
	}
	return out
}

func writeRow(b *strings.Builder, code int, r models.K4Row, longNames bool) {
	fmt.Fprintf(b, "#UPPGIFT %d %d\n", code, r.Quantity)
	fmt.Fprintf(b, "#UPPGIFT %d %s\n", code+1, Beteckning(r, longNames))
	fmt.Fprintf(b, "#UPPGIFT %d %d\n", code+2, r.Proceeds)
	fmt.Fprintf(b, "#UPPGIFT %d %d\n", code+3, r.CostBasis)
	gain, loss := split(r.Proceeds - r.CostBasis)
	fmt.Fprintf(b, "#UPPGIFT %d %d\n", code+4, gain)
	fmt.Fprintf(b, "#UPPGIFT %d %d\n", code+5, loss)
}

func writeSummary(b *strings.Builder, s Section, proceeds, cost int64) {
	fmt.Fprintf(b, "#UPPGIFT %d %d\n", s.SumProceeds, proceeds)
	fmt.Fprintf(b, "#UPPGIFT %d %d\n", s.SumCost, cost)
	gain, loss := split(proceeds - cost)
	fmt.Fprintf(b, "#UPPGIFT %d %d\n", s.SumGain, gain)
	fmt.Fprintf(b, "#UPPGIFT %d %d\n", s.SumLoss, loss)
}

// split returns (gain, 0) or (0, |loss|).
func split(v int64) (gain, loss int64) {
	if v < 0 {
		return 0, -v
	}
	return v, 0
}

// Beteckning is the designation written for r: the symbol without a
// trailing ".SEK", or the description when longNames is set.
func Beteckning(r models.K4Row, longNames bool) string {
	if longNames && r.Description != "" {
		return r.Description
	}
	return strings.TrimSuffix(r.Symbol, ".SEK")
}
