package sheets

import (
	"errors"
	"testing"

	"duo/internal/core"
)

func TestParseSettled(t *testing.T) {
	for _, v := range []string{"true", "TRUE", "1", "yes", "Vrai", "checked", "x", " V "} {
		if !ParseSettled(v) {
			t.Errorf("%q should be true", v)
		}
	}
	for _, v := range []string{"", "false", "0", "nan", "None", "no", "faux"} {
		if ParseSettled(v) {
			t.Errorf("%q should be false", v)
		}
	}
}

func TestParseKind(t *testing.T) {
	cases := []struct {
		label  string
		amount int64
		want   core.Kind
	}{
		{"Vente (Gain net Whatnot)", 100, core.KindSale},
		{"Achat Stock (Dépense)", -100, core.KindPurchase},
		{"Remboursement Julie", -100, core.KindRefund},
		{"sale", 5, core.KindSale},
		{"Refund", -5, core.KindRefund},
		{"", -5, core.KindPurchase},
		{"???", 5, core.KindSale},
	}
	for _, tc := range cases {
		if got := ParseKind(tc.label, core.Money{Cents: tc.amount}); got != tc.want {
			t.Errorf("ParseKind(%q, %d) = %s, want %s", tc.label, tc.amount, got, tc.want)
		}
	}
}

func TestParseDate(t *testing.T) {
	want := core.NewDate(2025, 3, 9)
	for _, in := range []string{"2025-03-09", "2025-03-09 18:30:00", "09/03/2025"} {
		got, err := ParseDate(in)
		if err != nil || !got.Equal(want.Time) {
			t.Errorf("ParseDate(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseDate("March 9"); !errors.Is(err, core.ErrInvalidDate) {
		t.Errorf("expected ErrInvalidDate, got %v", err)
	}
}

func TestDecodeRowsAliasesAndDefaults(t *testing.T) {
	values := [][]string{
		{"Année", "montant", "NATURE", "Date", "Description", "Paid"},
		{"2025", "12,50 €", "Vente (Gain net Whatnot)", "2025-01-02", "live 1", "TRUE"},
		{"", "", "", "", "", ""},
		{"2025", "-4", "", "02/01/2025", "sacs"},
	}
	txs, err := DecodeRows(values)
	if err != nil {
		t.Fatalf("DecodeRows: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("expected blank row dropped, got %d rows", len(txs))
	}
	if txs[0].Amount.Cents != 1250 || txs[0].Kind != core.KindSale || !txs[0].Settled {
		t.Fatalf("row 1 decoded as %+v", txs[0])
	}
	if txs[1].Kind != core.KindPurchase || txs[1].Settled || txs[1].Refunded.Cents != 0 {
		t.Fatalf("row 2 decoded as %+v", txs[1])
	}
}

func TestDecodeRowsReportsEveryBadCell(t *testing.T) {
	values := [][]string{
		{"Date", "Type", "Montant"},
		{"2025-01-02", "Vente", "abc"},
		{"", "Achat", "-3"},
	}
	_, err := DecodeRows(values)
	var ve *core.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(ve.Fields) != 2 || ve.Fields[0].Row != 2 || ve.Fields[1].Row != 3 {
		t.Fatalf("unexpected problems: %+v", ve.Fields)
	}
	if !errors.Is(err, core.ErrInvalidAmount) || !errors.Is(err, core.ErrInvalidDate) {
		t.Fatalf("causes not exposed: %v", err)
	}
}

func TestDecodeRowsRequiresDateColumn(t *testing.T) {
	_, err := DecodeRows([][]string{{"Montant"}, {"3"}})
	if !errors.Is(err, ErrMissingColumn) {
		t.Fatalf("expected ErrMissingColumn, got %v", err)
	}
	txs, err := DecodeRows(nil)
	if err != nil || txs != nil {
		t.Fatalf("empty sheet should decode to nothing, got %v %v", txs, err)
	}
}

func TestEncodeDecodeKeepsFields(t *testing.T) {
	in := []core.Transaction{
		{ID: "a", Date: core.NewDate(2025, 1, 2), Kind: core.KindSale, Description: "live", Amount: core.Money{Cents: 10000}, Refunded: core.Money{Cents: 2500}, LiveID: "L1"},
		{ID: "b", Date: core.NewDate(2025, 1, 3), Kind: core.KindRefund, Description: "Remboursement", Amount: core.Money{Cents: -1250}, Settled: true},
	}
	rows := EncodeRows(in)
	if rows[1][5] != "2025" || rows[1][3] != "100.00" || rows[2][1] != LabelRefund {
		t.Fatalf("unexpected encoding: %v", rows)
	}
	out, err := DecodeRows(rows)
	if err != nil {
		t.Fatalf("DecodeRows: %v", err)
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("row %d: got %+v want %+v", i, out[i], in[i])
		}
	}
}
