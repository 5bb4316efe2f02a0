package ledger

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/payvo/payvo/internal/logging"
)

type recordingStore struct {
	mu           sync.Mutex
	accountSaves int
	fullSaves    int
	requestSaves int
	fail         error
}

func (s *recordingStore) Load(context.Context) (Snapshot, error) { return Snapshot{}, nil }

func (s *recordingStore) SaveAccounts(context.Context, []Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fullSaves++
	return s.fail
}

func (s *recordingStore) SaveAccount(context.Context, Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accountSaves++
	return s.fail
}

func (s *recordingStore) SavePendingRequests(context.Context, []PendingRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requestSaves++
	return s.fail
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestDirectory(t *testing.T) (*Directory, *recordingStore) {
	t.Helper()
	st := &recordingStore{}
	return NewDirectory(st, logging.Discard()), st
}

func mustCreate(t *testing.T, d *Directory, email, name string, balance string, contacts ...Contact) Account {
	t.Helper()
	acct, err := d.Create(context.Background(), NewAccount{Email: email, Name: name, PhoneNumber: "555-0100", Contacts: contacts})
	if err != nil {
		t.Fatalf("create %s: %v", email, err)
	}
	SeedBalance(d, email, dec(balance))
	return acct
}

func balanceOf(t *testing.T, d *Directory, email string) decimal.Decimal {
	t.Helper()
	b, err := d.Balance(email)
	if err != nil {
		t.Fatalf("balance %s: %v", email, err)
	}
	return b
}

func contactBalance(t *testing.T, d *Directory, email, name string) decimal.Decimal {
	t.Helper()
	c, err := d.FindContact(email, name)
	if err != nil {
		t.Fatalf("find contact %s: %v", name, err)
	}
	return c.Balance
}

func TestCreateAssignsOpeningBalanceAndTag(t *testing.T) {
	d, st := newTestDirectory(t)
	acct, err := d.Create(context.Background(), NewAccount{Email: "Sam@Example.com", Name: "Sam"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if acct.Balance.LessThan(dec("1000")) || acct.Balance.GreaterThan(dec("1500")) {
		t.Fatalf("opening balance out of range: %s", acct.Balance)
	}
	if !regexp.MustCompile(`^[A-Z0-9]{6}$`).MatchString(acct.UniqueTag) {
		t.Fatalf("unexpected tag %q", acct.UniqueTag)
	}
	if st.accountSaves != 1 {
		t.Fatalf("expected one write-through, got %d", st.accountSaves)
	}

	if _, err := d.Create(context.Background(), NewAccount{Email: "sam@example.com"}); !errors.Is(err, ErrAccountExists) {
		t.Fatalf("expected duplicate email to fail, got %v", err)
	}
	if _, ok := d.FindByEmail("SAM@EXAMPLE.COM"); !ok {
		t.Fatal("expected case-insensitive email lookup")
	}
	if _, ok := d.FindByName("sam"); !ok {
		t.Fatal("expected case-insensitive name lookup")
	}
}

func TestDepositAndWithdraw(t *testing.T) {
	d, _ := newTestDirectory(t)
	ctx := context.Background()
	mustCreate(t, d, "me@example.com", "Me", "100")

	if _, err := d.Deposit(ctx, "me@example.com", dec("0"), ""); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
	if _, err := d.Deposit(ctx, "me@example.com", dec("50.25"), ""); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if _, err := d.Withdraw(ctx, "me@example.com", dec("200"), ""); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	rcpt, err := d.Withdraw(ctx, "me@example.com", dec("0.25"), "")
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if !rcpt.Balance.Equal(dec("150")) {
		t.Fatalf("expected balance 150, got %s", rcpt.Balance)
	}

	history, _ := d.History("me@example.com")
	if len(history) != 2 || history[0].Type != TypeDeposit || history[1].Type != TypeWithdrawal {
		t.Fatalf("unexpected history %+v", history)
	}
	if history[0].Description != "Deposit" || history[1].Description != "Withdrawal" {
		t.Fatalf("expected default descriptions, got %q and %q", history[0].Description, history[1].Description)
	}
}

func TestSplitBetweenContactsConservesMoney(t *testing.T) {
	d, st := newTestDirectory(t)
	ctx := context.Background()
	mustCreate(t, d, "a@example.com", "Alice", "1000", Contact{Name: "Me", Email: "me@example.com"})
	mustCreate(t, d, "b@example.com", "Bob", "1000", Contact{Name: "Me", Email: "me@example.com"})
	mustCreate(t, d, "me@example.com", "Me", "1000",
		Contact{Name: "Alice", Email: "a@example.com"},
		Contact{Name: "Bob", Email: "b@example.com"},
	)

	before := st.fullSaves
	rcpt, err := d.SplitBetweenContacts(ctx, "me@example.com", []string{"Alice", "Bob"}, dec("300"), "dinner")
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if !rcpt.PerPerson.Equal(dec("100")) {
		t.Fatalf("expected 100 per person, got %s", rcpt.PerPerson)
	}

	total := decimal.Zero
	for _, email := range []string{"me@example.com", "a@example.com", "b@example.com"} {
		b := balanceOf(t, d, email)
		if !b.Equal(dec("900")) {
			t.Fatalf("expected %s at 900, got %s", email, b)
		}
		total = total.Add(b)
	}
	if !total.Equal(dec("2700")) {
		t.Fatalf("expected 2700 across parties, got %s", total)
	}
	if !contactBalance(t, d, "me@example.com", "Alice").Equal(dec("900")) {
		t.Fatal("expected contact mirror to follow its backing account")
	}
	if st.fullSaves != before+1 {
		t.Fatalf("expected a full directory write, got %d", st.fullSaves-before)
	}

	history, _ := d.History("a@example.com")
	if len(history) != 1 || history[0].Type != TypeSplit || !history[0].Amount.Equal(dec("-100")) {
		t.Fatalf("expected mirrored split on backing account, got %+v", history)
	}
}

func TestSplitBetweenContactsIsAllOrNothing(t *testing.T) {
	d, _ := newTestDirectory(t)
	ctx := context.Background()
	mustCreate(t, d, "me@example.com", "Me", "1000",
		Contact{Name: "Alice", Balance: dec("500")},
		Contact{Name: "Bob", Balance: dec("50")},
	)

	if _, err := d.SplitBetweenContacts(ctx, "me@example.com", []string{"Alice", "Zed"}, dec("300"), ""); !errors.Is(err, ErrContactNotFound) {
		t.Fatalf("expected unknown contact to fail, got %v", err)
	}
	if _, err := d.SplitBetweenContacts(ctx, "me@example.com", []string{"Alice", "Bob"}, dec("300"), ""); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected Bob's shortfall to fail, got %v", err)
	}
	if !balanceOf(t, d, "me@example.com").Equal(dec("1000")) {
		t.Fatal("acting balance moved on failed split")
	}
	if !contactBalance(t, d, "me@example.com", "Alice").Equal(dec("500")) {
		t.Fatal("Alice moved on failed split")
	}
	if history, _ := d.History("me@example.com"); len(history) != 0 {
		t.Fatalf("expected no transactions, got %d", len(history))
	}
}

func TestSplitWithContactInsufficientLeavesBothSides(t *testing.T) {
	d, _ := newTestDirectory(t)
	ctx := context.Background()
	mustCreate(t, d, "me@example.com", "Me", "1000", Contact{Name: "Carol", Balance: dec("10")})

	if _, err := d.SplitWithContact(ctx, "me@example.com", "Carol", dec("100"), ""); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	if !balanceOf(t, d, "me@example.com").Equal(dec("1000")) {
		t.Fatal("acting balance changed")
	}
	if !contactBalance(t, d, "me@example.com", "Carol").Equal(dec("10")) {
		t.Fatal("contact balance changed")
	}

	rcpt, err := d.SplitWithContact(ctx, "me@example.com", "carol", dec("15"), "coffee")
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if !rcpt.Balance.Equal(dec("992.5")) || !contactBalance(t, d, "me@example.com", "Carol").Equal(dec("2.5")) {
		t.Fatalf("unexpected balances after split: %s", rcpt.Balance)
	}
	if rcpt.Transaction.Description != "Split with Carol: coffee" {
		t.Fatalf("unexpected description %q", rcpt.Transaction.Description)
	}
}

func TestFindContactNicknames(t *testing.T) {
	d, _ := newTestDirectory(t)
	mustCreate(t, d, "me@example.com", "Me", "100",
		Contact{Name: "Moe"},
		Contact{Name: "Robert"},
		Contact{Name: "Christopher Lane"},
	)

	short, err := d.FindContact("me@example.com", "mo")
	if err != nil {
		t.Fatalf("find mo: %v", err)
	}
	long, err := d.FindContact("me@example.com", "Moe")
	if err != nil {
		t.Fatalf("find Moe: %v", err)
	}
	if short.ID != long.ID {
		t.Fatal("expected mo and Moe to resolve to the same contact")
	}

	if c, err := d.FindContact("me@example.com", "bob"); err != nil || c.Name != "Robert" {
		t.Fatalf("expected bob to resolve to Robert, got %+v %v", c, err)
	}
	if c, err := d.FindContact("me@example.com", "christopher"); err != nil || c.Name != "Christopher Lane" {
		t.Fatalf("expected substring match, got %+v %v", c, err)
	}
	if _, err := d.FindContact("me@example.com", "zed"); !errors.Is(err, ErrContactNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdateContactBalance(t *testing.T) {
	d, st := newTestDirectory(t)
	mustCreate(t, d, "me@example.com", "Me", "100", Contact{Name: "Alice", Balance: dec("10")})
	ctx := context.Background()
	saves := st.accountSaves

	if err := d.UpdateContactBalance(ctx, "me@example.com", " alice ", dec("75.25")); err != nil {
		t.Fatalf("update: %v", err)
	}
	if got := contactBalance(t, d, "me@example.com", "Alice"); !got.Equal(dec("75.25")) {
		t.Fatalf("expected 75.25, got %s", got)
	}
	if st.accountSaves != saves+1 {
		t.Fatalf("expected one account save, got %d", st.accountSaves-saves)
	}
	if err := d.UpdateContactBalance(ctx, "me@example.com", "Alice", dec("-1")); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
	if err := d.UpdateContactBalance(ctx, "me@example.com", "Ali", dec("5")); !errors.Is(err, ErrContactNotFound) {
		t.Fatalf("expected exact match only, got %v", err)
	}
}

func TestSendToContactMirrorsBackingAccount(t *testing.T) {
	d, _ := newTestDirectory(t)
	ctx := context.Background()
	mustCreate(t, d, "alice@example.com", "Alice", "50")
	mustCreate(t, d, "me@example.com", "Me", "1000", Contact{Name: "Alice", Email: "alice@example.com"})

	rcpt, err := d.SendToContact(ctx, "me@example.com", "alice", dec("200"), "rent")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if !rcpt.Transaction.Amount.Equal(dec("-200")) || rcpt.Transaction.Type != TypeSend {
		t.Fatalf("unexpected acting transaction %+v", rcpt.Transaction)
	}
	if !balanceOf(t, d, "alice@example.com").Equal(dec("250")) {
		t.Fatal("expected backing account credited")
	}
	history, _ := d.History("alice@example.com")
	if len(history) != 1 || history[0].Type != TypeDeposit || history[0].Description != "Received from Me: rent" {
		t.Fatalf("unexpected mirror transaction %+v", history)
	}

	if _, err := d.SendToContact(ctx, "me@example.com", "alice", dec("5000"), ""); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
}

func TestRequestFromContactDoesNotMirror(t *testing.T) {
	d, _ := newTestDirectory(t)
	ctx := context.Background()
	mustCreate(t, d, "alice@example.com", "Alice", "500")
	mustCreate(t, d, "me@example.com", "Me", "100", Contact{Name: "Alice", Email: "alice@example.com"})

	if _, err := d.RequestFromContact(ctx, "me@example.com", "Alice", dec("600"), ""); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected contact shortfall, got %v", err)
	}
	rcpt, err := d.RequestFromContact(ctx, "me@example.com", "Alice", dec("100"), "")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if !rcpt.Balance.Equal(dec("200")) || !rcpt.Transaction.Amount.Equal(dec("100")) {
		t.Fatalf("unexpected receipt %+v", rcpt)
	}
	if !balanceOf(t, d, "alice@example.com").Equal(dec("500")) {
		t.Fatal("expected backing account untouched")
	}
}

func TestSplitsNeedMutualLink(t *testing.T) {
	d, _ := newTestDirectory(t)
	ctx := context.Background()
	mustCreate(t, d, "bob@example.com", "Bob", "300")
	mustCreate(t, d, "me@example.com", "Me", "1000", Contact{Name: "Bob", Email: "bob@example.com"})

	if _, err := d.SplitWithContact(ctx, "me@example.com", "Bob", dec("100"), ""); !errors.Is(err, ErrLinkNotMutual) {
		t.Fatalf("split with: expected one-sided link refused, got %v", err)
	}
	if _, err := d.SplitBetweenContacts(ctx, "me@example.com", []string{"Bob"}, dec("100"), ""); !errors.Is(err, ErrLinkNotMutual) {
		t.Fatalf("split between: expected one-sided link refused, got %v", err)
	}
	if _, err := d.CollectSplitFromContacts(ctx, "me@example.com", []string{"Bob"}, dec("100"), ""); !errors.Is(err, ErrLinkNotMutual) {
		t.Fatalf("collect: expected one-sided link refused, got %v", err)
	}
	if !balanceOf(t, d, "bob@example.com").Equal(dec("300")) || !balanceOf(t, d, "me@example.com").Equal(dec("1000")) {
		t.Fatal("refused splits must not move money")
	}

	if _, err := d.SendToContact(ctx, "me@example.com", "Bob", dec("10"), ""); err != nil {
		t.Fatalf("sending to a one-sided link only credits it: %v", err)
	}

	if _, err := d.AddContact(ctx, "bob@example.com", Contact{Name: "Me", Email: "ME@example.com"}); err != nil {
		t.Fatalf("bob adds me: %v", err)
	}
	if _, err := d.SplitBetweenContacts(ctx, "me@example.com", []string{"Bob"}, dec("100"), ""); err != nil {
		t.Fatalf("mutual link: %v", err)
	}
	if !balanceOf(t, d, "bob@example.com").Equal(dec("260")) {
		t.Fatalf("expected Bob at 260, got %s", balanceOf(t, d, "bob@example.com"))
	}
}

func TestSelfBackedContactIsRejected(t *testing.T) {
	d, _ := newTestDirectory(t)
	ctx := context.Background()
	mustCreate(t, d, "me@example.com", "Me", "100")
	if _, err := d.AddContact(ctx, "me@example.com", Contact{Name: "Myself", Email: "ME@example.com"}); !errors.Is(err, ErrSelfTransfer) {
		t.Fatalf("expected self contact to be rejected, got %v", err)
	}
}

func TestCollectSplitFromContacts(t *testing.T) {
	d, _ := newTestDirectory(t)
	ctx := context.Background()
	mustCreate(t, d, "bob@example.com", "Bob", "10", Contact{Name: "Me", Email: "me@example.com"})
	mustCreate(t, d, "me@example.com", "Me", "100",
		Contact{Name: "Alice", Balance: dec("0")},
		Contact{Name: "Bob", Email: "bob@example.com"},
	)

	if _, err := d.CollectSplitFromContacts(ctx, "me@example.com", []string{"Alice", "Bob"}, dec("90"), ""); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected Bob's account to block the collection, got %v", err)
	}
	if !balanceOf(t, d, "me@example.com").Equal(dec("100")) {
		t.Fatal("acting balance moved on aborted collection")
	}

	rcpt, err := d.CollectSplitFromContacts(ctx, "me@example.com", []string{"Alice", "Bob"}, dec("30"), "")
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if !rcpt.Balance.Equal(dec("120")) || !rcpt.Transaction.Amount.Equal(dec("20")) {
		t.Fatalf("unexpected receipt %+v", rcpt)
	}
	if !balanceOf(t, d, "bob@example.com").Equal(dec("0")) {
		t.Fatal("expected Bob's account debited")
	}
	if !contactBalance(t, d, "me@example.com", "Alice").Equal(dec("-10")) {
		t.Fatal("expected unchecked contact mirror to be debited")
	}
}

func TestMoneyRequestAcceptOnce(t *testing.T) {
	d, st := newTestDirectory(t)
	ctx := context.Background()
	mustCreate(t, d, "req@example.com", "Requester", "100")
	mustCreate(t, d, "pay@example.com", "Payer", "500")

	req, err := d.SendMoneyRequest(ctx, "req@example.com", "pay@example.com", dec("75"), "")
	if err != nil {
		t.Fatalf("send request: %v", err)
	}
	if req.Status != RequestPending || req.Description != "Money Request" {
		t.Fatalf("unexpected request %+v", req)
	}
	if st.requestSaves != 1 {
		t.Fatalf("expected request write-through, got %d", st.requestSaves)
	}
	if pending := d.PendingRequestsFor("PAY@example.com"); len(pending) != 1 {
		t.Fatalf("expected one pending request, got %d", len(pending))
	}

	if _, err := d.RespondToMoneyRequest(ctx, "req@example.com", req.ID, true); !errors.Is(err, ErrNotAddressee) {
		t.Fatalf("expected requester to be refused, got %v", err)
	}

	resolved, err := d.RespondToMoneyRequest(ctx, "pay@example.com", req.ID, true)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if resolved.Status != RequestAccepted {
		t.Fatalf("expected accepted, got %s", resolved.Status)
	}
	if !balanceOf(t, d, "req@example.com").Equal(dec("175")) || !balanceOf(t, d, "pay@example.com").Equal(dec("425")) {
		t.Fatal("expected exactly 75 to move")
	}

	if _, err := d.RespondToMoneyRequest(ctx, "pay@example.com", req.ID, true); !errors.Is(err, ErrRequestResolved) {
		t.Fatalf("expected second answer to fail, got %v", err)
	}
	if !balanceOf(t, d, "pay@example.com").Equal(dec("425")) {
		t.Fatal("second answer moved money")
	}
	if len(d.PendingRequestsFor("pay@example.com")) != 0 {
		t.Fatal("expected no pending requests left")
	}
}

func TestMoneyRequestInsufficientStaysPending(t *testing.T) {
	d, _ := newTestDirectory(t)
	ctx := context.Background()
	mustCreate(t, d, "req@example.com", "Requester", "100")
	mustCreate(t, d, "pay@example.com", "Payer", "10")

	req, err := d.SendMoneyRequest(ctx, "req@example.com", "pay@example.com", dec("75"), "")
	if err != nil {
		t.Fatalf("send request: %v", err)
	}
	if _, err := d.RespondToMoneyRequest(ctx, "pay@example.com", req.ID, true); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	if len(d.PendingRequestsFor("pay@example.com")) != 1 {
		t.Fatal("expected request to stay pending")
	}
	declined, err := d.RespondToMoneyRequest(ctx, "pay@example.com", req.ID, false)
	if err != nil || declined.Status != RequestDeclined {
		t.Fatalf("expected decline, got %+v %v", declined, err)
	}
	if _, err := d.SendMoneyRequest(ctx, "req@example.com", "req@example.com", dec("1"), ""); !errors.Is(err, ErrSelfTransfer) {
		t.Fatalf("expected self request to fail, got %v", err)
	}
}

func TestPruneRequests(t *testing.T) {
	d, _ := newTestDirectory(t)
	ctx := context.Background()
	mustCreate(t, d, "req@example.com", "Requester", "100")
	mustCreate(t, d, "pay@example.com", "Payer", "100")

	now := time.Date(2025, 1, 31, 12, 0, 0, 0, time.UTC)
	SetClock(d, func() time.Time { return now.AddDate(0, 0, -40) })
	if _, err := d.SendMoneyRequest(ctx, "req@example.com", "pay@example.com", dec("5"), "old"); err != nil {
		t.Fatalf("old request: %v", err)
	}
	SetClock(d, func() time.Time { return now })
	if _, err := d.SendMoneyRequest(ctx, "req@example.com", "pay@example.com", dec("5"), "new"); err != nil {
		t.Fatalf("new request: %v", err)
	}

	if removed := d.PruneRequests(ctx, 30*24*time.Hour); removed != 1 {
		t.Fatalf("expected one pruned request, got %d", removed)
	}
	pending := d.PendingRequestsFor("pay@example.com")
	if len(pending) != 1 || pending[0].Description != "new" {
		t.Fatalf("unexpected remaining requests %+v", pending)
	}
}

func TestVerifiedDeleteAndSearch(t *testing.T) {
	d, _ := newTestDirectory(t)
	ctx := context.Background()
	me := mustCreate(t, d, "me@example.com", "Me", "100")
	mustCreate(t, d, "alice@example.com", "Alice Jones", "100")
	mustCreate(t, d, "alan@sample.org", "Alan", "100")

	if got := d.Search("me@example.com", "AL"); len(got) != 2 {
		t.Fatalf("expected two matches, got %d", len(got))
	}
	if got := d.Search("me@example.com", "example"); len(got) != 1 || got[0].Email != "alice@example.com" {
		t.Fatalf("expected acting account excluded, got %+v", got)
	}
	if got := d.Search("me@example.com", "  "); got != nil {
		t.Fatal("expected empty query to match nothing")
	}

	if err := d.VerifiedDelete(ctx, "me@example.com", "555-0100", "WRONG1"); !errors.Is(err, ErrVerificationFailed) {
		t.Fatalf("expected wrong tag to fail, got %v", err)
	}
	if err := d.VerifiedDelete(ctx, "ME@example.com", "555-0100", me.UniqueTag); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := d.FindByEmail("me@example.com"); ok {
		t.Fatal("expected account removed")
	}
}

func TestEnsureFundedTopsUpEmptyAccounts(t *testing.T) {
	d, _ := newTestDirectory(t)
	ctx := context.Background()
	mustCreate(t, d, "me@example.com", "Me", "0")

	acct, topped, err := d.EnsureFunded(ctx, "me@example.com")
	if err != nil || !topped {
		t.Fatalf("expected top-up, got %v %v", topped, err)
	}
	if acct.Balance.LessThan(dec("1000")) {
		t.Fatalf("expected fresh opening balance, got %s", acct.Balance)
	}
	if _, topped, _ := d.EnsureFunded(ctx, "me@example.com"); topped {
		t.Fatal("expected funded account left alone")
	}
}

func TestStoreFailureKeepsMemoryAuthoritative(t *testing.T) {
	d, st := newTestDirectory(t)
	mustCreate(t, d, "me@example.com", "Me", "100")
	st.fail = errors.New("disk full")

	if _, err := d.Deposit(context.Background(), "me@example.com", dec("5"), ""); err != nil {
		t.Fatalf("deposit should not surface store failures: %v", err)
	}
	if !balanceOf(t, d, "me@example.com").Equal(dec("105")) {
		t.Fatal("expected in-memory state kept")
	}
}

func TestConcurrentSendsNeverOverdraw(t *testing.T) {
	d, _ := newTestDirectory(t)
	ctx := context.Background()
	mustCreate(t, d, "me@example.com", "Me", "1000", Contact{Name: "Alice"})

	const workers = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := d.SendToContact(ctx, "me@example.com", "Alice", dec("100"), ""); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			} else if !errors.Is(err, ErrInsufficientFunds) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 10 {
		t.Fatalf("expected 10 sends to fit, got %d", succeeded)
	}
	if !balanceOf(t, d, "me@example.com").IsZero() {
		t.Fatal("expected balance drained to zero")
	}
	if !contactBalance(t, d, "me@example.com", "Alice").Equal(dec("1000")) {
		t.Fatal("expected contact to hold everything sent")
	}
}
