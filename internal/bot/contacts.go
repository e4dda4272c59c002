package bot

import (
	"fmt"
	"strconv"
	"strings"

	"assistbot/internal/contacts"
)

var contactHeaders = []string{"Name", "Phones", "Emails", "Birthday", "Address"}

func contactMissing(name string) Reply {
	return text(ToneWarning, fmt.Sprintf("Contact %q does not exist.", name))
}

func contactRows(records []*contacts.Record) [][]string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		birthday := ""
		if r.Birthday != nil {
			birthday = r.Birthday.String()
		}
		rows = append(rows, []string{
			r.Name,
			orDash(r.PhoneList(", ")),
			orDash(r.EmailList(", ")),
			orDash(birthday),
			orDash(r.Address),
		})
	}
	return rows
}

func (b *Bot) addContact(args []string) (Reply, error) {
	if len(args) < 1 {
		return Reply{}, missingArgs(CmdAdd)
	}
	name := args[0]
	var phone string
	if len(args) > 1 {
		p, err := contacts.NewPhone(args[1])
		if err != nil {
			return Reply{}, err
		}
		phone = string(p)
	}

	msg := "Contact updated."
	record, ok := b.book.Find(name)
	if !ok {
		r, err := contacts.NewRecord(name)
		if err != nil {
			return Reply{}, err
		}
		record = r
		b.book.Add(record)
		msg = "Contact added."
	}
	if phone != "" {
		if err := record.AddPhone(phone); err != nil {
			return Reply{}, err
		}
	}
	return mutated(msg), nil
}

func (b *Bot) deleteContact(args []string) (Reply, error) {
	if len(args) < 1 {
		return Reply{}, missingArgs(CmdDelete)
	}
	if _, ok := b.book.Delete(args[0]); !ok {
		return contactMissing(args[0]), nil
	}
	return mutated("Contact deleted."), nil
}

func (b *Bot) changePhone(args []string) (Reply, error) {
	if len(args) < 3 {
		return Reply{}, missingArgs(CmdChangePhone)
	}
	name, oldPhone, newPhone := args[0], args[1], args[2]
	record, ok := b.book.Find(name)
	if !ok {
		return contactMissing(name), nil
	}
	if _, ok := record.FindPhone(oldPhone); !ok {
		return text(ToneWarning, fmt.Sprintf("Phone %q does not exist.", oldPhone)), nil
	}
	if err := record.EditPhone(oldPhone, newPhone); err != nil {
		return Reply{}, err
	}
	return mutated("Contact updated."), nil
}

func (b *Bot) removePhone(args []string) (Reply, error) {
	if len(args) < 2 {
		return Reply{}, missingArgs(CmdRemovePhone)
	}
	record, ok := b.book.Find(args[0])
	if !ok {
		return contactMissing(args[0]), nil
	}
	if !record.RemovePhone(args[1]) {
		return text(ToneWarning, fmt.Sprintf("Phone %q does not exist.", args[1])), nil
	}
	return mutated("Phone removed."), nil
}

func (b *Bot) showPhones(args []string) (Reply, error) {
	if len(args) < 1 {
		return Reply{}, missingArgs(CmdPhones)
	}
	record, ok := b.book.Find(args[0])
	if !ok {
		return contactMissing(args[0]), nil
	}
	if len(record.Phones) == 0 {
		return text(ToneWarning, fmt.Sprintf("The contact %q has no phones.", record.Name)), nil
	}
	rows := make([][]string, 0, len(record.Phones))
	for _, p := range record.Phones {
		rows = append(rows, []string{record.Name, string(p)})
	}
	return table([]string{"Name", "Phone"}, rows), nil
}

func (b *Bot) addEmail(args []string) (Reply, error) {
	if len(args) < 2 {
		return Reply{}, missingArgs(CmdAddEmail)
	}
	record, ok := b.book.Find(args[0])
	if !ok {
		return contactMissing(args[0]), nil
	}
	if err := record.AddEmail(args[1]); err != nil {
		return Reply{}, err
	}
	return mutated("Email added."), nil
}

func (b *Bot) showEmails(args []string) (Reply, error) {
	if len(args) < 1 {
		return Reply{}, missingArgs(CmdEmails)
	}
	record, ok := b.book.Find(args[0])
	if !ok {
		return contactMissing(args[0]), nil
	}
	if len(record.Emails) == 0 {
		return text(ToneWarning, fmt.Sprintf("The contact %q has no emails.", record.Name)), nil
	}
	rows := make([][]string, 0, len(record.Emails))
	for _, e := range record.Emails {
		rows = append(rows, []string{record.Name, string(e)})
	}
	return table([]string{"Name", "Email"}, rows), nil
}

func (b *Bot) changeEmail(args []string) (Reply, error) {
	if len(args) < 3 {
		return Reply{}, missingArgs(CmdChangeEmail)
	}
	name, oldEmail, newEmail := args[0], args[1], args[2]
	record, ok := b.book.Find(name)
	if !ok {
		return contactMissing(name), nil
	}
	if _, ok := record.FindEmail(oldEmail); !ok {
		return text(ToneWarning, fmt.Sprintf("Email %q does not exist.", oldEmail)), nil
	}
	if err := record.EditEmail(oldEmail, newEmail); err != nil {
		return Reply{}, err
	}
	return mutated("Contact updated."), nil
}

func (b *Bot) removeEmail(args []string) (Reply, error) {
	if len(args) < 2 {
		return Reply{}, missingArgs(CmdRemoveEmail)
	}
	record, ok := b.book.Find(args[0])
	if !ok {
		return contactMissing(args[0]), nil
	}
	if !record.RemoveEmail(args[1]) {
		return text(ToneWarning, fmt.Sprintf("Email %q does not exist.", args[1])), nil
	}
	return mutated("Email removed."), nil
}

func (b *Bot) setAddress(args []string) (Reply, error) {
	if len(args) < 2 {
		return Reply{}, missingArgs(CmdSetAddress)
	}
	record, ok := b.book.Find(args[0])
	if !ok {
		return contactMissing(args[0]), nil
	}
	record.SetAddress(strings.Join(args[1:], " "))
	return mutated("Address updated."), nil
}

func (b *Bot) addBirthday(args []string) (Reply, error) {
	if len(args) < 2 {
		return Reply{}, missingArgs(CmdAddBirthday)
	}
	record, ok := b.book.Find(args[0])
	if !ok {
		return contactMissing(args[0]), nil
	}
	if err := record.SetBirthday(args[1], b.today()); err != nil {
		return Reply{}, err
	}
	return mutated("Contact birthday added."), nil
}

func (b *Bot) showBirthday(args []string) (Reply, error) {
	if len(args) < 1 {
		return Reply{}, missingArgs(CmdShowBirthday)
	}
	record, ok := b.book.Find(args[0])
	if !ok {
		return contactMissing(args[0]), nil
	}
	if record.Birthday == nil {
		return text(ToneWarning, "Contact date of birth is not specified."), nil
	}
	return text(ToneWarning, record.Birthday.String()), nil
}

func (b *Bot) showBirthdays(args []string) (Reply, error) {
	days := b.window
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 0 {
			return Reply{}, fmt.Errorf("%w: days %q", ErrInvalidArgs, args[0])
		}
		days = n
	}

	upcoming := b.book.UpcomingBirthdays(b.today(), days, b.shiftWeekends)
	if len(upcoming) == 0 {
		return text(ToneWarning, "No upcoming birthdays."), nil
	}
	rows := make([][]string, 0, len(upcoming))
	for _, c := range upcoming {
		rows = append(rows, []string{c.Name, c.Date.Format(contacts.BirthdayLayout)})
	}
	return table([]string{"Name", "Congratulation date"}, rows), nil
}

func (b *Bot) search(args []string) (Reply, error) {
	query := strings.Join(args, " ")
	if query == "" {
		return Reply{}, missingArgs(CmdSearch)
	}
	found := b.book.Search(query)
	if len(found) == 0 {
		return text(ToneWarning, fmt.Sprintf("No contacts found for %q.", query)), nil
	}
	return table(contactHeaders, contactRows(found)), nil
}

func (b *Bot) showAll([]string) (Reply, error) {
	if b.book.Len() == 0 {
		return text(ToneWarning, "Address book is empty."), nil
	}
	return table(contactHeaders, contactRows(b.book.Records())), nil
}
