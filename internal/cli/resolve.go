package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/alexanderramin/nutq/internal/domain"
	"github.com/alexanderramin/nutq/internal/flatten"
	"github.com/alexanderramin/nutq/internal/service"
)

// resolveScheme matches an exact id, then a case-insensitive name, then a
// unique id prefix.
func resolveScheme(f domain.Forest, input string) (domain.Scheme, error) {
	if input == "" {
		return domain.Scheme{}, fmt.Errorf("scheme is required")
	}
	for _, s := range f {
		if s.ID == input {
			return s, nil
		}
	}
	for _, s := range f {
		if strings.EqualFold(s.Name, input) {
			return s, nil
		}
	}
	var matches []domain.Scheme
	for _, s := range f {
		if strings.HasPrefix(s.ID, input) {
			matches = append(matches, s)
		}
	}
	switch len(matches) {
	case 0:
		return domain.Scheme{}, fmt.Errorf("scheme not found: %q", input)
	case 1:
		return matches[0], nil
	default:
		return domain.Scheme{}, fmt.Errorf("scheme prefix %q is ambiguous (%d matches)", input, len(matches))
	}
}

// resolveItem matches an exact id, then a unique id prefix, then a unique
// case-insensitive text.
func resolveItem(f domain.Forest, input string) (domain.Item, error) {
	if input == "" {
		return domain.Item{}, fmt.Errorf("item is required")
	}
	var byPrefix, byText []domain.Item
	for _, s := range f {
		for _, it := range s.Items {
			if it.ID == input {
				return it, nil
			}
			if strings.HasPrefix(it.ID, input) {
				byPrefix = append(byPrefix, it)
			}
			if strings.EqualFold(it.Text, input) {
				byText = append(byText, it)
			}
		}
	}
	for _, candidates := range [][]domain.Item{byPrefix, byText} {
		switch len(candidates) {
		case 0:
			continue
		case 1:
			return candidates[0], nil
		default:
			return domain.Item{}, fmt.Errorf("item %q is ambiguous (%d matches)", input, len(candidates))
		}
	}
	return domain.Item{}, fmt.Errorf("item not found: %q", input)
}

var timeLayouts = []string{time.RFC3339, "2006-01-02 15:04", "2006-01-02T15:04", "2006-01-02"}

// parseWhen reads a flag time in loc. Empty input means absent.
func parseWhen(s string, loc *time.Location) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid time %q (want YYYY-MM-DD or YYYY-MM-DD HH:MM)", s)
}

// parseTypes maps "event,reminder" to a mask; empty selects every type.
func parseTypes(names []string) (flatten.TypeMask, error) {
	if len(names) == 0 {
		return flatten.MaskAll, nil
	}
	var mask flatten.TypeMask
	for _, n := range names {
		t, ok := domain.ParseItemType(strings.ToLower(strings.TrimSpace(n)))
		if !ok {
			return 0, fmt.Errorf("unknown item type %q", n)
		}
		mask |= flatten.MaskOf(t)
	}
	return mask, nil
}

// itemFlags are the editable item fields shared by `item add` and `item update`.
type itemFlags struct {
	start, end  string
	blocks      int
	modulus     int
	unit        time.Duration
	remainders  []int
	weekly      int
	indentation int
}

func bindItemFlags(fs *pflag.FlagSet, f *itemFlags) {
	fs.StringVar(&f.start, "start", "", "Start time (YYYY-MM-DD[ HH:MM])")
	fs.StringVar(&f.end, "end", "", "End or due time (YYYY-MM-DD[ HH:MM])")
	fs.IntVar(&f.blocks, "blocks", 0, "Repeat for this many blocks (0 = no repeat)")
	fs.IntVar(&f.modulus, "modulus", 7, "Units per block")
	fs.DurationVar(&f.unit, "unit", 24*time.Hour, "Length of one unit")
	fs.IntSliceVar(&f.remainders, "on", []int{0}, "Unit offsets within each block")
	fs.IntVar(&f.weekly, "weekly", 0, "Shortcut for --blocks N --modulus 7 --unit 24h")
	fs.IntVar(&f.indentation, "indent", 0, "Indentation level")
}

func (f *itemFlags) rule() domain.RecurrenceRule {
	switch {
	case f.weekly > 0:
		return domain.BlockRepeat(f.weekly, f.remainders, 7, 24*time.Hour)
	case f.blocks > 0:
		return domain.BlockRepeat(f.blocks, f.remainders, f.modulus, f.unit)
	}
	return domain.NoRepeat()
}

// input builds the item fields. Flags the user did not set keep the values
// of base, so updates only touch what was asked for.
func (f *itemFlags) input(fs *pflag.FlagSet, base domain.Item, loc *time.Location) (service.ItemInput, error) {
	in := service.ItemInput{
		Text:        base.Text,
		Start:       base.Start,
		End:         base.End,
		Repeats:     base.Repeats,
		Indentation: base.Indentation,
	}
	if fs.Changed("start") {
		t, err := parseWhen(f.start, loc)
		if err != nil {
			return in, err
		}
		in.Start = t
	}
	if fs.Changed("end") {
		t, err := parseWhen(f.end, loc)
		if err != nil {
			return in, err
		}
		in.End = t
	}
	if fs.Changed("blocks") || fs.Changed("weekly") || fs.Changed("on") || fs.Changed("modulus") || fs.Changed("unit") {
		in.Repeats = f.rule()
	}
	if fs.Changed("indent") {
		in.Indentation = f.indentation
	}
	if err := in.Repeats.Validate(); err != nil {
		return in, fmt.Errorf("invalid recurrence: %w", err)
	}
	return in, nil
}
