package ofx

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/monarch-amazon-tagger/internal/domain/currency"
	"github.com/eshaffer321/monarch-amazon-tagger/internal/domain/ledger"
)

const sampleCreditCardOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20240315120000[0:GMT]
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
<CREDITCARDMSGSRSV1>
<CCSTMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<CCSTMTRS>
<CURDEF>USD
<CCACCTFROM>
<ACCTID>4111111111111111
</CCACCTFROM>
<BANKTRANLIST>
<DTSTART>20240101120000[0:GMT]
<DTEND>20240131120000[0:GMT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240110120000[0:GMT]
<TRNAMT>-20.00
<FITID>CC001
<NAME>AMAZON MKTPL*AB12CD
<MEMO>Online purchase
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240118120000[0:GMT]
<TRNAMT>-7.49
<FITID>CC002
<NAME>AMZN Mktp US*XY34
</STMTTRN>
<STMTTRN>
<TRNTYPE>CREDIT
<DTPOSTED>20240125120000[0:GMT]
<TRNAMT>3.21
<FITID>CC003
<NAME>COFFEE SHOP REFUND
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>-24.28
<DTASOF>20240131120000[0:GMT]
</LEDGERBAL>
</CCSTMTRS>
</CCSTMTTRNRS>
</CREDITCARDMSGSRSV1>
</OFX>`

func TestParse_CreditCard(t *testing.T) {
	// Act
	txs, err := Parse(strings.NewReader(sampleCreditCardOFX))

	// Assert
	require.NoError(t, err)
	require.Len(t, txs, 3)

	first := txs[0]
	assert.Equal(t, "CC001", first.ID)
	assert.Equal(t, currency.MustParse("-20.00"), first.Amount)
	assert.Equal(t, time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), first.Date)
	assert.Equal(t, "AMAZON MKTPL*AB12CD", first.Description())
	assert.Equal(t, "AMAZON MKTPL*AB12CD", first.PlaidName)
	assert.Equal(t, "Online purchase", first.Notes)
	assert.Equal(t, "4111111111111111", first.Account.ID)

	assert.Equal(t, currency.MustParse("-7.49"), txs[1].Amount)
	assert.False(t, txs[2].IsDebit())
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse(strings.NewReader("not an ofx file"))
	assert.Error(t, err)
}

func TestPreprocess(t *testing.T) {
	in := "\n\n<SEVERITY>Info</SEVERITY>\n<CODE\n"

	out := preprocess(in)

	assert.Equal(t, "<SEVERITY>INFO</SEVERITY>\n<CODE>\n", out)
}

func TestClient_GetTransactions(t *testing.T) {
	// Arrange
	path := filepath.Join(t.TempDir(), "statement.qfx")
	require.NoError(t, os.WriteFile(path, []byte(sampleCreditCardOFX), 0o600))
	client := NewClient([]string{path}, nil)

	tests := []struct {
		name    string
		query   ledger.TransactionQuery
		wantIDs []string
	}{
		{"all", ledger.TransactionQuery{}, []string{"CC001", "CC002", "CC003"}},
		{"start date", ledger.TransactionQuery{StartDate: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)}, []string{"CC002", "CC003"}},
		{"end date", ledger.TransactionQuery{EndDate: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)}, []string{"CC001"}},
		{"search", ledger.TransactionQuery{Search: "amzn"}, []string{"CC002"}},
		{"other account", ledger.TransactionQuery{AccountIDs: []string{"999"}}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Act
			txs, err := client.GetTransactions(context.Background(), tt.query)

			// Assert
			require.NoError(t, err)
			var ids []string
			for _, tx := range txs {
				ids = append(ids, tx.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestClient_ReadOnly(t *testing.T) {
	client := NewClient(nil, nil)

	cats, err := client.GetCategories(context.Background())
	require.NoError(t, err)
	assert.Empty(t, cats)
	assert.ErrorIs(t, client.UpdateTransaction(context.Background(), &ledger.TransactionUpdate{}), ErrReadOnly)
	assert.ErrorIs(t, client.SplitTransaction(context.Background(), &ledger.SplitUpdate{}), ErrReadOnly)
}

func TestClient_MissingFile(t *testing.T) {
	client := NewClient([]string{"/nonexistent/statement.ofx"}, nil)

	_, err := client.GetTransactions(context.Background(), ledger.TransactionQuery{})

	assert.ErrorIs(t, err, os.ErrNotExist)
}
