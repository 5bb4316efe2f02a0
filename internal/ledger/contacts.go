package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Contacts returns the acting account's contacts with backed balances
// reconciled. A changed mirror is written through.
func (d *Directory) Contacts(ctx context.Context, email string) ([]Contact, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	acct, err := d.mustAccount("contacts", email)
	if err != nil {
		return nil, err
	}
	if d.reconcile(acct) {
		d.saveAccount(ctx, acct)
	}
	return append([]Contact(nil), acct.Contacts...), nil
}

// FindContact resolves a spoken name against the acting account's contacts.
func (d *Directory) FindContact(email, name string) (Contact, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	acct, err := d.mustAccount("find contact", email)
	if err != nil {
		return Contact{}, err
	}
	d.reconcile(acct)
	idx, ok := resolveContact(acct, name)
	if !ok {
		return Contact{}, fmt.Errorf("find contact %q: %w", name, ErrContactNotFound)
	}
	return acct.Contacts[idx], nil
}

// AddContact appends c to the acting account's address book. Names are unique
// case-insensitively.
func (d *Directory) AddContact(ctx context.Context, email string, c Contact) (Contact, error) {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return Contact{}, fmt.Errorf("add contact: name required")
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	acct, err := d.mustAccount("add contact", email)
	if err != nil {
		return Contact{}, err
	}
	for _, existing := range acct.Contacts {
		if strings.EqualFold(existing.Name, c.Name) {
			return Contact{}, fmt.Errorf("add contact %q: %w", c.Name, ErrContactExists)
		}
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if b := d.backing(&c); b != nil {
		if b == acct {
			return Contact{}, fmt.Errorf("add contact %q: %w", c.Name, ErrSelfTransfer)
		}
		c.Balance = b.Balance
	}
	acct.Contacts = append(acct.Contacts, c)
	d.saveAccount(ctx, acct)
	return c, nil
}

// RemoveContact deletes a contact by id.
func (d *Directory) RemoveContact(ctx context.Context, email string, id uuid.UUID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	acct, err := d.mustAccount("remove contact", email)
	if err != nil {
		return err
	}
	for i, c := range acct.Contacts {
		if c.ID == id {
			acct.Contacts = append(acct.Contacts[:i], acct.Contacts[i+1:]...)
			d.saveAccount(ctx, acct)
			return nil
		}
	}
	return fmt.Errorf("remove contact %s: %w", id, ErrContactNotFound)
}

// UpdateContactBalance overwrites the local mirror of an unbacked contact.
// The name must match exactly, ignoring case.
func (d *Directory) UpdateContactBalance(ctx context.Context, email, name string, balance decimal.Decimal) error {
	if balance.IsNegative() {
		return fmt.Errorf("update contact %q: %w", name, ErrInvalidAmount)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	acct, err := d.mustAccount("update contact", email)
	if err != nil {
		return err
	}
	for i := range acct.Contacts {
		if strings.EqualFold(acct.Contacts[i].Name, strings.TrimSpace(name)) {
			acct.Contacts[i].Balance = balance
			d.saveAccount(ctx, acct)
			return nil
		}
	}
	return fmt.Errorf("update contact %q: %w", name, ErrContactNotFound)
}
