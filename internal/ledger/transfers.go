package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/payvo/payvo/internal/money"
)

// Receipt describes an applied movement from the acting account's side.
type Receipt struct {
	Transaction Transaction
	Balance     decimal.Decimal
	// PerPerson is set by the split operations.
	PerPerson decimal.Decimal
	// Counterparties holds the resolved contact names in call order.
	Counterparties []string
}

// party is one resolved contact taking part in a movement.
type party struct {
	idx     int
	backing *Account
	share   decimal.Decimal
}

// Deposit credits the acting account.
func (d *Directory) Deposit(ctx context.Context, email string, amount decimal.Decimal, description string) (Receipt, error) {
	amount, err := positive("deposit", amount)
	if err != nil {
		return Receipt{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	acct, err := d.mustAccount("deposit", email)
	if err != nil {
		return Receipt{}, err
	}

	acct.Balance = acct.Balance.Add(amount)
	tx := d.record(acct, TypeDeposit, amount, orDefault(description, "Deposit"), "", "")
	d.saveAccount(ctx, acct)
	return Receipt{Transaction: tx, Balance: acct.Balance}, nil
}

// Withdraw debits the acting account when it can cover amount.
func (d *Directory) Withdraw(ctx context.Context, email string, amount decimal.Decimal, description string) (Receipt, error) {
	amount, err := positive("withdraw", amount)
	if err != nil {
		return Receipt{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	acct, err := d.mustAccount("withdraw", email)
	if err != nil {
		return Receipt{}, err
	}
	if acct.Balance.LessThan(amount) {
		return Receipt{}, fmt.Errorf("withdraw %s: %w", money.Format(amount), ErrInsufficientFunds)
	}

	acct.Balance = acct.Balance.Sub(amount)
	tx := d.record(acct, TypeWithdrawal, amount, orDefault(description, "Withdrawal"), "", "")
	d.saveAccount(ctx, acct)
	return Receipt{Transaction: tx, Balance: acct.Balance}, nil
}

// SendToContact moves amount from the acting account to a contact. A backing
// account is credited in the same critical section.
func (d *Directory) SendToContact(ctx context.Context, email, contactName string, amount decimal.Decimal, description string) (Receipt, error) {
	amount, err := positive("send", amount)
	if err != nil {
		return Receipt{}, err
	}
	description = orDefault(description, "Send")

	d.mu.Lock()
	defer d.mu.Unlock()
	acct, err := d.mustAccount("send", email)
	if err != nil {
		return Receipt{}, err
	}
	d.reconcile(acct)
	parties, err := d.resolveParties("send", acct, []string{contactName}, amount)
	if err != nil {
		return Receipt{}, err
	}
	if acct.Balance.LessThan(amount) {
		return Receipt{}, fmt.Errorf("send %s: %w", money.Format(amount), ErrInsufficientFunds)
	}

	p := parties[0]
	contact := &acct.Contacts[p.idx]
	acct.Balance = acct.Balance.Sub(amount)
	tx := d.record(acct, TypeSend, amount.Neg(), "Send to "+contact.Name+": "+description, contact.Name, acct.Name)

	contact.Balance = contact.Balance.Add(amount)
	if p.backing != nil {
		p.backing.Balance = p.backing.Balance.Add(amount)
		d.record(p.backing, TypeDeposit, amount, "Received from "+acct.Name+": "+description, "", acct.Name)
		contact.Balance = p.backing.Balance
	}
	d.persist(ctx, acct, parties)
	return Receipt{Transaction: tx, Balance: acct.Balance, Counterparties: []string{contact.Name}}, nil
}

// RequestFromContact pulls amount from a contact into the acting account.
// Only the local mirror is debited; a backing account is left untouched.
func (d *Directory) RequestFromContact(ctx context.Context, email, contactName string, amount decimal.Decimal, description string) (Receipt, error) {
	amount, err := positive("request", amount)
	if err != nil {
		return Receipt{}, err
	}
	description = orDefault(description, "Request")

	d.mu.Lock()
	defer d.mu.Unlock()
	acct, err := d.mustAccount("request", email)
	if err != nil {
		return Receipt{}, err
	}
	d.reconcile(acct)
	parties, err := d.resolveParties("request", acct, []string{contactName}, amount)
	if err != nil {
		return Receipt{}, err
	}
	contact := &acct.Contacts[parties[0].idx]
	if contact.Balance.LessThan(amount) {
		return Receipt{}, fmt.Errorf("request from %s: %w", contact.Name, ErrInsufficientFunds)
	}

	acct.Balance = acct.Balance.Add(amount)
	tx := d.record(acct, TypeRequest, amount, "Request from "+contact.Name+": "+description, acct.Name, contact.Name)
	contact.Balance = contact.Balance.Sub(amount)
	d.saveAccount(ctx, acct)
	return Receipt{Transaction: tx, Balance: acct.Balance, Counterparties: []string{contact.Name}}, nil
}

// SplitWithContact halves amount between the acting account and one contact.
func (d *Directory) SplitWithContact(ctx context.Context, email, contactName string, amount decimal.Decimal, description string) (Receipt, error) {
	amount, err := positive("split", amount)
	if err != nil {
		return Receipt{}, err
	}
	description = orDefault(description, "Split")
	half := money.Split(amount, 2)

	d.mu.Lock()
	defer d.mu.Unlock()
	acct, err := d.mustAccount("split", email)
	if err != nil {
		return Receipt{}, err
	}
	d.reconcile(acct)
	parties, err := d.resolveParties("split", acct, []string{contactName}, half)
	if err != nil {
		return Receipt{}, err
	}
	if acct.Balance.LessThan(half) {
		return Receipt{}, fmt.Errorf("split %s: %w", money.Format(amount), ErrInsufficientFunds)
	}
	if err := d.checkParties("split", acct, parties); err != nil {
		return Receipt{}, err
	}

	contact := acct.Contacts[parties[0].idx]
	acct.Balance = acct.Balance.Sub(half)
	tx := d.record(acct, TypeSplit, half.Neg(), "Split with "+contact.Name+": "+description, contact.Name, acct.Name)
	d.debitParties(acct, parties, "Split with "+acct.Name+": "+description)
	d.persist(ctx, acct, parties)
	return Receipt{Transaction: tx, Balance: acct.Balance, PerPerson: half, Counterparties: []string{contact.Name}}, nil
}

// SplitBetweenContacts divides total evenly between the acting account and
// every named contact. Every party is checked before anything moves.
func (d *Directory) SplitBetweenContacts(ctx context.Context, email string, names []string, total decimal.Decimal, description string) (Receipt, error) {
	total, err := positive("multi-split", total)
	if err != nil {
		return Receipt{}, err
	}
	if len(names) == 0 {
		return Receipt{}, fmt.Errorf("multi-split: %w", ErrNoContacts)
	}
	description = orDefault(description, "Multi-Split")
	perPerson := money.Split(total, len(names)+1)

	d.mu.Lock()
	defer d.mu.Unlock()
	acct, err := d.mustAccount("multi-split", email)
	if err != nil {
		return Receipt{}, err
	}
	if acct.Balance.LessThan(perPerson) {
		return Receipt{}, fmt.Errorf("multi-split %s: %w", money.Format(total), ErrInsufficientFunds)
	}
	d.reconcile(acct)
	parties, err := d.resolveParties("multi-split", acct, names, perPerson)
	if err != nil {
		return Receipt{}, err
	}
	if err := d.checkParties("multi-split", acct, parties); err != nil {
		return Receipt{}, err
	}

	resolved := d.partyNames(acct, names)
	joined := strings.Join(resolved, ", ")
	acct.Balance = acct.Balance.Sub(perPerson)
	tx := d.record(acct, TypeSplit, perPerson.Neg(), "Split "+money.Format(total)+" with "+joined+": "+description, joined, acct.Name)
	d.debitParties(acct, parties, "Split with "+acct.Name+": "+description)
	d.persist(ctx, acct, parties)
	return Receipt{Transaction: tx, Balance: acct.Balance, PerPerson: perPerson, Counterparties: resolved}, nil
}

// CollectSplitFromContacts is the receiving side of an even split: each named
// contact pays its share to the acting account. Unbacked contacts are not
// checked for funds; a backing account that cannot pay aborts the whole call.
func (d *Directory) CollectSplitFromContacts(ctx context.Context, email string, names []string, total decimal.Decimal, description string) (Receipt, error) {
	total, err := positive("collect split", total)
	if err != nil {
		return Receipt{}, err
	}
	if len(names) == 0 {
		return Receipt{}, fmt.Errorf("collect split: %w", ErrNoContacts)
	}
	description = orDefault(description, "Collect Split")
	perPerson := money.Split(total, len(names)+1)

	d.mu.Lock()
	defer d.mu.Unlock()
	acct, err := d.mustAccount("collect split", email)
	if err != nil {
		return Receipt{}, err
	}
	d.reconcile(acct)
	parties, err := d.resolveParties("collect split", acct, names, perPerson)
	if err != nil {
		return Receipt{}, err
	}
	if err := checkBacking("collect split", acct, parties); err != nil {
		return Receipt{}, err
	}

	resolved := d.partyNames(acct, names)
	joined := strings.Join(resolved, ", ")
	received := perPerson.Mul(decimal.NewFromInt(int64(len(names))))
	acct.Balance = acct.Balance.Add(received)
	tx := d.record(acct, TypeSplit, received, "Collect split with "+joined+": "+description, acct.Name, joined)
	d.debitParties(acct, parties, "Split payment to "+acct.Name+": "+description)
	d.persist(ctx, acct, parties)
	return Receipt{Transaction: tx, Balance: acct.Balance, PerPerson: perPerson, Counterparties: resolved}, nil
}

// resolveParties maps names onto contacts, folding repeated names into one
// party owing the summed share.
func (d *Directory) resolveParties(op string, acct *Account, names []string, share decimal.Decimal) ([]party, error) {
	var parties []party
	seen := make(map[int]int)
	for _, name := range names {
		idx, ok := resolveContact(acct, name)
		if !ok {
			return nil, fmt.Errorf("%s: %q: %w", op, name, ErrContactNotFound)
		}
		if pos, dup := seen[idx]; dup {
			parties[pos].share = parties[pos].share.Add(share)
			continue
		}
		b := d.backing(&acct.Contacts[idx])
		if b == acct {
			return nil, fmt.Errorf("%s: %q: %w", op, name, ErrSelfTransfer)
		}
		seen[idx] = len(parties)
		parties = append(parties, party{idx: idx, backing: b, share: share})
	}
	return parties, nil
}

func (d *Directory) checkParties(op string, acct *Account, parties []party) error {
	for _, p := range parties {
		c := acct.Contacts[p.idx]
		if c.Balance.LessThan(p.share) {
			return fmt.Errorf("%s: %s: %w", op, c.Name, ErrInsufficientFunds)
		}
	}
	return checkBacking(op, acct, parties)
}

// checkBacking sums shares per backing account, since two contacts may be
// backed by the same one. A backing account is only debited when it lists
// acct among its own contacts.
func checkBacking(op string, acct *Account, parties []party) error {
	owed := make(map[*Account]decimal.Decimal)
	for _, p := range parties {
		if p.backing == nil {
			continue
		}
		if !listsEmail(p.backing, acct.Email) {
			return fmt.Errorf("%s: %s: %w", op, p.backing.Name, ErrLinkNotMutual)
		}
		owed[p.backing] = owed[p.backing].Add(p.share)
	}
	for b, sum := range owed {
		if b.Balance.LessThan(sum) {
			return fmt.Errorf("%s: %s: %w", op, b.Name, ErrInsufficientFunds)
		}
	}
	return nil
}

// debitParties takes each party's share from its contact mirror and backing
// account.
func (d *Directory) debitParties(acct *Account, parties []party, mirrorDescription string) {
	for _, p := range parties {
		contact := &acct.Contacts[p.idx]
		contact.Balance = contact.Balance.Sub(p.share)
		if p.backing != nil {
			p.backing.Balance = p.backing.Balance.Sub(p.share)
			d.record(p.backing, TypeSplit, p.share.Neg(), mirrorDescription, acct.Name, "")
			contact.Balance = p.backing.Balance
		}
	}
}

func (d *Directory) partyNames(acct *Account, names []string) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		idx, _ := resolveContact(acct, name)
		out = append(out, acct.Contacts[idx].Name)
	}
	return out
}

// persist writes the acting account alone, or the whole directory when a
// backing account moved too.
func (d *Directory) persist(ctx context.Context, acct *Account, parties []party) {
	for _, p := range parties {
		if p.backing != nil {
			d.saveAll(ctx)
			return
		}
	}
	d.saveAccount(ctx, acct)
}

func (d *Directory) record(acct *Account, typ TransactionType, amount decimal.Decimal, description, recipient, sender string) Transaction {
	tx := Transaction{
		ID:            uuid.New(),
		Type:          typ,
		Amount:        amount,
		Timestamp:     d.now(),
		Description:   description,
		RecipientName: recipient,
		SenderName:    sender,
	}
	acct.Transactions = append(acct.Transactions, tx)
	return tx
}

func positive(op string, amount decimal.Decimal) (decimal.Decimal, error) {
	amount = amount.Round(2)
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("%s %s: %w", op, amount.String(), ErrInvalidAmount)
	}
	return amount, nil
}

func orDefault(s, fallback string) string {
	if s = strings.TrimSpace(s); s == "" {
		return fallback
	}
	return s
}

func listsEmail(acct *Account, email string) bool {
	for _, c := range acct.Contacts {
		if c.Email != "" && strings.EqualFold(c.Email, email) {
			return true
		}
	}
	return false
}
