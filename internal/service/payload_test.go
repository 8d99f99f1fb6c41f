package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/yourorg/clearscrub/internal/domain"
)

func basePayload() *StatementIntakePayload {
	body := `{
		"document_id": "doc-1",
		"submission_id": "",
		"org_id": "org-1",
		"file_path": "uploads/statement.pdf",
		"llama_job_id": "job-1",
		"extracted_data": {
			"statement": {
				"summary": {
					"company_name": "ABC Corp.",
					"bank_name": "First National",
					"account_number": "1234-5678-9012",
					"period_start": "2025-03-01",
					"period_end": "2025-03-31",
					"opening_balance": "1000.00",
					"closing_balance": 1250.50
				},
				"transactions": [
					{"date": "2025-03-02", "description": "ACH DEPOSIT", "amount": 500, "balance": 1500},
					{"date": "2025-03-03", "description": "CHECK 1042", "amount": "-249.50", "balance": "1250.50"}
				]
			}
		}
	}`
	var p StatementIntakePayload
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		panic(err)
	}
	return &p
}

func rejectionCode(t *testing.T, err error) string {
	t.Helper()
	var rej *domain.RejectionError
	if !errors.As(err, &rej) {
		t.Fatalf("expected RejectionError, got %v", err)
	}
	return rej.Code
}

func TestValidateAcceptsMixedAmountTypes(t *testing.T) {
	v, err := basePayload().Validate(10000)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(v.Transactions) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(v.Transactions))
	}
	if v.Transactions[0].Amount.String() != "500" {
		t.Errorf("numeric amount parsed as %s", v.Transactions[0].Amount)
	}
	if v.Transactions[1].Amount.String() != "-249.5" {
		t.Errorf("string amount parsed as %s", v.Transactions[1].Amount)
	}
	if v.OpeningBalance.String() != "1000" {
		t.Errorf("opening balance parsed as %s", v.OpeningBalance)
	}
	if v.Transactions[0].ID == "" || v.Transactions[0].ID == v.Transactions[1].ID {
		t.Errorf("transactions must get distinct derived ids")
	}
}

func TestValidateMissingFields(t *testing.T) {
	for _, field := range []string{"document_id", "org_id", "file_path", "llama_job_id"} {
		p := basePayload()
		switch field {
		case "document_id":
			p.DocumentID = ""
		case "org_id":
			p.OrgID = ""
		case "file_path":
			p.FilePath = ""
		case "llama_job_id":
			p.LlamaJobID = ""
		}
		_, err := p.Validate(10000)
		if code := rejectionCode(t, err); code != domain.CodeMissingField {
			t.Errorf("%s: code = %s, want missing_field", field, code)
		}
	}

	p := basePayload()
	p.ExtractedData = nil
	if code := rejectionCode(t, mustFail(t, p)); code != domain.CodeMissingField {
		t.Errorf("nil extracted_data: code = %s, want missing_field", code)
	}
}

func mustFail(t *testing.T, p *StatementIntakePayload) error {
	t.Helper()
	_, err := p.Validate(10000)
	if err == nil {
		t.Fatalf("expected validation to fail")
	}
	return err
}

func TestValidateInvalidAmountNamesIndex(t *testing.T) {
	p := basePayload()
	p.ExtractedData.Statement.Transactions[1].Amount = json.RawMessage(`"abc"`)
	err := mustFail(t, p)
	if code := rejectionCode(t, err); code != domain.CodeInvalidAmount {
		t.Fatalf("code = %s, want invalid_amount", code)
	}
	if !strings.Contains(err.Error(), "transaction 1") {
		t.Fatalf("error must name the failing index: %v", err)
	}
}

func TestValidateInvalidDateNamesIndex(t *testing.T) {
	p := basePayload()
	p.ExtractedData.Statement.Transactions[0].Date = "03/02/2025"
	err := mustFail(t, p)
	if code := rejectionCode(t, err); code != domain.CodeInvalidDate {
		t.Fatalf("code = %s, want invalid_date", code)
	}
	if !strings.Contains(err.Error(), "transaction 0") {
		t.Fatalf("error must name the failing index: %v", err)
	}
}

func TestValidateTransactionCapBoundary(t *testing.T) {
	makeTxns := func(n int) []RawTransaction {
		out := make([]RawTransaction, n)
		for i := range out {
			out[i] = RawTransaction{
				Date:        "2025-03-02",
				Description: fmt.Sprintf("TXN %d", i),
				Amount:      json.RawMessage(`1`),
				Balance:     json.RawMessage(`1`),
			}
		}
		return out
	}

	p := basePayload()
	p.ExtractedData.Statement.Transactions = makeTxns(10000)
	if _, err := p.Validate(10000); err != nil {
		t.Fatalf("exactly 10000 transactions must be accepted: %v", err)
	}

	p = basePayload()
	p.ExtractedData.Statement.Transactions = makeTxns(10001)
	_, err := p.Validate(10000)
	if code := rejectionCode(t, err); code != domain.CodeTooManyTransactions {
		t.Fatalf("code = %s, want too_many_transactions", code)
	}
}

func TestParseFlexDecimal(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{`123.45`, "123.45", false},
		{`"123.45"`, "123.45", false},
		{`"-1,234.56"`, "-1234.56", false},
		{``, "0", false},
		{`null`, "0", false},
		{`""`, "0", false},
		{`"abc"`, "", true},
		{`{"v":1}`, "", true},
	}
	for _, c := range cases {
		got, err := parseFlexDecimal(json.RawMessage(c.in))
		if c.wantErr {
			if err == nil {
				t.Errorf("parseFlexDecimal(%s): expected error, got %s", c.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseFlexDecimal(%s): %v", c.in, err)
			continue
		}
		if got.String() != c.want {
			t.Errorf("parseFlexDecimal(%s) = %s, want %s", c.in, got, c.want)
		}
	}
}
