package main

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/pterm/pterm"

	service "github.com/okian/ledgerboard/internal/app"
	"github.com/okian/ledgerboard/internal/domain/model"
	"github.com/okian/ledgerboard/internal/loadgen"
	"github.com/okian/ledgerboard/internal/viewmodel"
)

func renderView(w io.Writer, snap viewmodel.Snapshot) error {
	data := pterm.TableData{{"#", "Player", "Score", "Game", "Time"}}
	for i, e := range snap.Table {
		data = append(data, []string{
			strconv.Itoa(i + 1),
			e.Player.Hex(),
			strconv.FormatUint(e.Score, 10),
			e.GameName,
			e.Time().UTC().Format(time.RFC3339),
		})
	}
	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, table); err != nil {
		return err
	}
	if st := snap.Of(viewmodel.SlotTable); st.Stale() {
		fmt.Fprint(w, pterm.Warning.Sprintfln("table is stale: %v", st.Err))
	}
	if snap.Player == (model.Player{}) {
		return nil
	}
	return renderPlayer(w, snap)
}

func renderPlayer(w io.Writer, snap viewmodel.Snapshot) error {
	rank := "unranked"
	if snap.Rank.Ranked() {
		rank = "#" + strconv.Itoa(snap.Rank.Position())
	}
	var b strings.Builder
	fmt.Fprintf(&b, "best score: %d\n", snap.BestScore)
	fmt.Fprintf(&b, "rank:       %s", rank)
	for _, slot := range []viewmodel.Slot{viewmodel.SlotBestScore, viewmodel.SlotRank} {
		if st := snap.Of(slot); st.Err != nil {
			fmt.Fprintf(&b, "\n%s unavailable: %v", slot, st.Err)
		}
	}
	box := pterm.DefaultBox.WithTitle(snap.Player.Hex()).WithTitleTopCenter().Sprint(b.String())
	_, err := fmt.Fprintln(w, box)
	return err
}

func renderSignal(w io.Writer, sig service.Signal) error {
	var line string
	switch sig.Outcome {
	case service.OutcomeSuccess:
		line = successLine(fmt.Sprintf("%d in %s confirmed as %s",
			sig.Request.Score, sig.Request.GameName, sig.Reference.Hex()))
	default:
		line = pterm.Error.Sprintfln("%s", sig.Message)
	}
	_, err := fmt.Fprint(w, line)
	return err
}

func renderReport(w io.Writer, r loadgen.Report) error {
	data := pterm.TableData{
		{"Players", strconv.Itoa(r.Players)},
		{"Submitted", strconv.FormatInt(r.Submitted, 10)},
		{"Confirmed", strconv.FormatInt(r.Confirmed, 10)},
		{"Failed", strconv.FormatInt(r.Failed, 10)},
		{"Table", fmt.Sprintf("%d/%d", r.TableSize, r.Capacity)},
		{"Duration", r.Duration.Round(time.Millisecond).String()},
	}
	table, err := pterm.DefaultTable.WithData(data).Srender()
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, table); err != nil {
		return err
	}
	for _, v := range r.Violations {
		fmt.Fprint(w, pterm.Error.Sprintfln("%s", v))
	}
	if r.OK() {
		fmt.Fprint(w, successLine("all submissions confirmed and the table is consistent"))
	}
	return nil
}

func renderStats(w io.Writer, st map[string]any) error {
	keys := make([]string, 0, len(st))
	for k := range st {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	data := pterm.TableData{{"Stat", "Value"}}
	for _, k := range keys {
		data = append(data, []string{k, fmt.Sprint(st[k])})
	}
	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, table)
	return err
}

func successLine(msg string) string {
	return pterm.Success.Sprintfln("%s", msg)
}
