package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/go-kit/log/level"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/grafana/retrace/pkg/server"
	"github.com/grafana/retrace/pkg/source"
	"github.com/grafana/retrace/pkg/symtab"
)

type resolveParams struct {
	file       string
	class      string
	method     string
	line       int
	candidates bool
}

func addResolveParams(cmd *kingpin.CmdClause) *resolveParams {
	params := &resolveParams{}
	cmd.Flag("candidates", "Also list every candidate of the method and whether it matches the line.").BoolVar(&params.candidates)
	cmd.Arg("file", "mapping table path").Required().ExistingFileVar(&params.file)
	cmd.Arg("class", "obfuscated class name").Required().StringVar(&params.class)
	cmd.Arg("method", "obfuscated method name").StringVar(&params.method)
	cmd.Arg("line", "line number; omit when unknown").Default(strconv.Itoa(symtab.NoLine)).IntVar(&params.line)
	return params
}

func loadTable(path string) (*symtab.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r, err := source.Decompress(f)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return symtab.BuildFromReader(r)
}

func resolve(ctx context.Context, params *resolveParams) error {
	t, err := loadTable(params.file)
	if err != nil {
		return err
	}
	level.Debug(logger).Log("msg", "loaded mapping table", "file", params.file, "classes", t.Stats().Classes)

	res := t.Resolve(params.class, params.method, params.line)
	if _, err = fmt.Fprintln(output(ctx), server.FormatResult(res)); err != nil {
		return err
	}
	if params.candidates && params.method != "" {
		printCandidates(ctx, t.Candidates(res.ClassName, params.method), params.line)
	}
	return nil
}

func printCandidates(ctx context.Context, candidates []symtab.MethodCandidate, line int) {
	table := tablewriter.NewWriter(output(ctx))
	table.SetHeader([]string{"Original", "First line", "Last line", "Matches"})
	for _, c := range candidates {
		table.Append([]string{
			c.OriginalName,
			strconv.Itoa(c.FirstLine),
			strconv.Itoa(c.LastLine),
			strconv.FormatBool(c.Matches(line)),
		})
	}
	table.Render()
}

type tableStats struct {
	file  string
	stats symtab.Stats
}

func inspect(ctx context.Context, files []string) error {
	all := make([]tableStats, 0, len(files))
	for _, file := range files {
		t, err := loadTable(file)
		if err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
		all = append(all, tableStats{file: file, stats: t.Stats()})
	}

	table := tablewriter.NewWriter(output(ctx))
	table.SetHeader([]string{"File", "Classes", "Methods", "Fields", "Size", "Checksum"})
	for _, s := range all {
		table.Append(statsRow(s.file, s.stats))
	}
	if len(all) > 1 {
		footer := statsRow("total", symtab.Stats{
			Classes:       lo.SumBy(all, func(s tableStats) int { return s.stats.Classes }),
			Methods:       lo.SumBy(all, func(s tableStats) int { return s.stats.Methods }),
			FieldsSkipped: lo.SumBy(all, func(s tableStats) int { return s.stats.FieldsSkipped }),
			SourceBytes:   lo.SumBy(all, func(s tableStats) int64 { return s.stats.SourceBytes }),
		})
		footer[len(footer)-1] = ""
		table.SetFooter(footer)
	}
	table.Render()
	return nil
}

func statsRow(name string, s symtab.Stats) []string {
	return []string{
		name,
		humanize.Comma(int64(s.Classes)),
		humanize.Comma(int64(s.Methods)),
		humanize.Comma(int64(s.FieldsSkipped)),
		humanize.Bytes(uint64(s.SourceBytes)),
		fmt.Sprintf("%016x", s.Checksum),
	}
}
