package cli

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/term"
)

type Value interface {
	String() string
	Set(string) error
	Get() any
}

type stringValue struct{ p *string }

func (v *stringValue) Set(s string) error { *v.p = s; return nil }
func (v *stringValue) String() string     { return *v.p }
func (v *stringValue) Get() any           { return *v.p }

type boolValue struct{ p *bool }

func (v *boolValue) Set(s string) error {
	if s == "" {
		*v.p = true
		return nil
	}
	val, err := strconv.ParseBool(s)
	if err != nil {
		return fmt.Errorf("invalid boolean value '%s': %w", s, err)
	}
	*v.p = val
	return nil
}
func (v *boolValue) String() string { return strconv.FormatBool(*v.p) }
func (v *boolValue) Get() any       { return *v.p }

type intValue struct{ p *int }

func (v *intValue) Set(s string) error {
	val, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("invalid integer value '%s': %w", s, err)
	}
	*v.p = val
	return nil
}
func (v *intValue) String() string { return strconv.Itoa(*v.p) }
func (v *intValue) Get() any       { return *v.p }

type listValue struct{ p *[]string }

func (v *listValue) Set(s string) error { *v.p = append(*v.p, s); return nil }
func (v *listValue) String() string     { return strings.Join(*v.p, ", ") }
func (v *listValue) Get() any           { return *v.p }

type Flag struct {
	Name         string
	Shorthand    string
	Usage        string
	Value        Value
	DefValue     string
	ExpectedType string
}

type FlagGroup struct {
	Name                 string
	Description          string
	Flags                []FlagGroupEntry
	GroupType            string
	AvailableFlagsHeader string
}

// FlagGroupEntry describes a -<Prefix><Name> / -<Prefix>no-<Name> pair.
type FlagGroupEntry struct {
	Name     string
	Prefix   string
	Usage    string
	Enabled  *bool
	Disabled *bool
	Default  bool
}

type FlagSet struct {
	name       string
	flags      map[string]*Flag
	shorthands map[string]*Flag
	args       []string
	flagGroups []FlagGroup
}

func NewFlagSet(name string) *FlagSet {
	return &FlagSet{
		name:       name,
		flags:      make(map[string]*Flag),
		shorthands: make(map[string]*Flag),
	}
}

func (f *FlagSet) Args() []string            { return f.args }
func (f *FlagSet) Lookup(name string) *Flag { return f.flags[name] }

func (f *FlagSet) String(p *string, name, shorthand, value, usage, expectedType string) {
	*p = value
	f.Var(&stringValue{p}, name, shorthand, usage, value, expectedType)
}

func (f *FlagSet) Bool(p *bool, name, shorthand string, value bool, usage string) {
	*p = value
	f.Var(&boolValue{p}, name, shorthand, usage, strconv.FormatBool(value), "")
}

func (f *FlagSet) Int(p *int, name, shorthand string, value int, usage, expectedType string) {
	*p = value
	f.Var(&intValue{p}, name, shorthand, usage, strconv.Itoa(value), expectedType)
}

func (f *FlagSet) List(p *[]string, name, shorthand string, value []string, usage, expectedType string) {
	*p = value
	f.Var(&listValue{p}, name, shorthand, usage, "", expectedType)
}

func (f *FlagSet) Var(value Value, name, shorthand, usage, defValue, expectedType string) {
	if name == "" {
		panic("flag name cannot be empty")
	}
	if _, ok := f.flags[name]; ok {
		panic(fmt.Sprintf("flag redefined: %s", name))
	}
	flag := &Flag{Name: name, Shorthand: shorthand, Usage: usage, Value: value, DefValue: defValue, ExpectedType: expectedType}
	f.flags[name] = flag
	if shorthand != "" {
		if _, ok := f.shorthands[shorthand]; ok {
			panic(fmt.Sprintf("shorthand flag redefined: %s", shorthand))
		}
		f.shorthands[shorthand] = flag
	}
}

func (f *FlagSet) AddFlagGroup(name, description, groupType, availableFlagsHeader string, entries []FlagGroupEntry) {
	for _, e := range entries {
		f.Bool(e.Enabled, e.Prefix+e.Name, "", false, e.Usage)
		f.Bool(e.Disabled, e.Prefix+"no-"+e.Name, "", false, "Disable '"+e.Name+"'")
	}
	f.flagGroups = append(f.flagGroups, FlagGroup{
		Name: name, Description: description, Flags: entries,
		GroupType: groupType, AvailableFlagsHeader: availableFlagsHeader,
	})
}

// Parse accepts --name[=v], -name[=v] (multi-letter flags such as -Wshadow),
// and single letter shorthands with attached or separate values (-ofile, -o file).
func (f *FlagSet) Parse(arguments []string) error {
	f.args = []string{}
	for i := 0; i < len(arguments); i++ {
		arg := arguments[i]
		if len(arg) < 2 || arg[0] != '-' {
			f.args = append(f.args, arg)
			continue
		}
		if arg == "--" {
			f.args = append(f.args, arguments[i+1:]...)
			break
		}

		body := strings.TrimPrefix(strings.TrimPrefix(arg, "-"), "-")
		name, value, hasValue := strings.Cut(body, "=")
		if name == "" {
			return fmt.Errorf("empty flag name")
		}
		flag, ok := f.flags[name]
		if !ok {
			if strings.HasPrefix(arg, "--") {
				return fmt.Errorf("unknown flag: %s", arg)
			}
			if err := f.parseShorthand(arg, arguments, &i); err != nil {
				return err
			}
			continue
		}
		if hasValue {
			if err := flag.Value.Set(value); err != nil {
				return err
			}
			continue
		}
		if _, isBool := flag.Value.(*boolValue); isBool {
			flag.Value.Set("")
			continue
		}
		if i+1 >= len(arguments) {
			return fmt.Errorf("flag needs an argument: %s", arg)
		}
		i++
		if err := flag.Value.Set(arguments[i]); err != nil {
			return err
		}
	}
	return nil
}

func (f *FlagSet) parseShorthand(arg string, arguments []string, i *int) error {
	shorthand := arg[1:2]
	flag, ok := f.shorthands[shorthand]
	if !ok {
		return fmt.Errorf("unknown flag: %s", arg)
	}
	if _, isBool := flag.Value.(*boolValue); isBool {
		if len(arg) > 2 {
			return fmt.Errorf("unknown flag: %s", arg)
		}
		return flag.Value.Set("")
	}
	value := arg[2:]
	if value == "" {
		if *i+1 >= len(arguments) {
			return fmt.Errorf("flag needs an argument: -%s", shorthand)
		}
		*i++
		value = arguments[*i]
	}
	return flag.Value.Set(value)
}

type App struct {
	Name        string
	Synopsis    string
	Description string
	Authors     []string
	Repository  string
	Since       int
	FlagSet     *FlagSet
	Action      func(args []string) error
}

func NewApp(name string) *App {
	return &App{Name: name, FlagSet: NewFlagSet(name)}
}

func (a *App) Run(arguments []string) error {
	help := false
	a.FlagSet.Bool(&help, "help", "h", false, "Display this information")

	if err := a.FlagSet.Parse(arguments); err != nil {
		fmt.Fprintln(os.Stderr, err)
		a.writeUsage(os.Stderr)
		return err
	}
	if help {
		a.writeHelp(os.Stdout)
		return nil
	}
	if a.Action != nil {
		return a.Action(a.FlagSet.Args())
	}
	return nil
}

func indent(level int) string { return strings.Repeat(" ", 4*level) }

func (a *App) writeUsage(w io.Writer) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Usage: %s %s\n", a.Name, a.Synopsis)
	fmt.Fprintf(&sb, "\nRun '%s --help' for all available options and flags.\n", a.Name)
	fmt.Fprint(w, sb.String())
}

func (a *App) writeHelp(w io.Writer) {
	var sb strings.Builder
	termWidth := terminalWidth()
	options := a.optionFlags()

	leftWidth := 0
	for _, flag := range options {
		leftWidth = max(leftWidth, len(formatFlag(flag)))
	}
	for _, group := range a.FlagSet.flagGroups {
		for _, e := range group.Flags {
			leftWidth = max(leftWidth, len(e.Name), len(fmt.Sprintf("-%sno-<%s>", e.Prefix, group.GroupType)))
		}
	}

	authors := strings.Join(a.Authors, ", ") + " and contributors"
	if a.Since != 0 && a.Since != time.Now().Year() {
		fmt.Fprintf(&sb, "\n%sCopyright (c) %d-%d: %s\n", indent(1), a.Since, time.Now().Year(), authors)
	} else {
		fmt.Fprintf(&sb, "\n%sCopyright (c) %d: %s\n", indent(1), time.Now().Year(), authors)
	}
	if a.Repository != "" {
		fmt.Fprintf(&sb, "%sFor more details refer to %s\n", indent(1), a.Repository)
	}
	if a.Synopsis != "" {
		fmt.Fprintf(&sb, "\n%sSynopsis\n%s%s %s\n", indent(1), indent(2), a.Name, a.Synopsis)
	}
	if a.Description != "" {
		fmt.Fprintf(&sb, "\n%sDescription\n", indent(1))
		for _, line := range wrapText(a.Description, termWidth-len(indent(2))) {
			fmt.Fprintf(&sb, "%s%s\n", indent(2), line)
		}
	}

	if len(options) > 0 {
		fmt.Fprintf(&sb, "\n%sOptions\n", indent(1))
		for _, flag := range options {
			right := ""
			if _, isBool := flag.Value.(*boolValue); !isBool && flag.DefValue != "" {
				right = fmt.Sprintf("|%s|", flag.DefValue)
			}
			writeEntry(&sb, termWidth, leftWidth, formatFlag(flag), flag.Usage, right)
		}
	}

	groups := append([]FlagGroup(nil), a.FlagSet.flagGroups...)
	sort.Slice(groups, func(i, j int) bool { return groups[i].Name < groups[j].Name })
	for _, group := range groups {
		if len(group.Flags) == 0 {
			continue
		}
		prefix := group.Flags[0].Prefix
		fmt.Fprintf(&sb, "\n%s%s\n", indent(1), group.Name)
		fmt.Fprintf(&sb, "%s%-*s Enable a specific %s\n", indent(2), leftWidth, fmt.Sprintf("-%s<%s>", prefix, group.GroupType), group.GroupType)
		fmt.Fprintf(&sb, "%s%-*s Disable a specific %s\n", indent(2), leftWidth, fmt.Sprintf("-%sno-<%s>", prefix, group.GroupType), group.GroupType)
		if group.AvailableFlagsHeader != "" {
			fmt.Fprintf(&sb, "%s%s\n", indent(1), group.AvailableFlagsHeader)
		}
		entries := append([]FlagGroupEntry(nil), group.Flags...)
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
		for _, e := range entries {
			state := "|-|"
			if e.Default {
				state = "|x|"
			}
			writeEntry(&sb, termWidth, leftWidth, e.Name, e.Usage, state)
		}
	}
	fmt.Fprint(w, sb.String())
}

func (a *App) optionFlags() []*Flag {
	grouped := make(map[string]bool)
	for _, group := range a.FlagSet.flagGroups {
		for _, e := range group.Flags {
			grouped[e.Prefix+e.Name] = true
			grouped[e.Prefix+"no-"+e.Name] = true
		}
	}
	var flags []*Flag
	for _, flag := range a.FlagSet.flags {
		if !grouped[flag.Name] {
			flags = append(flags, flag)
		}
	}
	sort.Slice(flags, func(i, j int) bool { return flags[i].Name < flags[j].Name })
	return flags
}

func formatFlag(flag *Flag) string {
	_, isBool := flag.Value.(*boolValue)
	var sb strings.Builder
	if flag.Shorthand != "" {
		fmt.Fprintf(&sb, "-%s, ", flag.Shorthand)
	}
	fmt.Fprintf(&sb, "--%s", flag.Name)
	if !isBool && flag.ExpectedType != "" {
		fmt.Fprintf(&sb, " <%s>", flag.ExpectedType)
	}
	return sb.String()
}

func writeEntry(sb *strings.Builder, termWidth, leftWidth int, left, usage, right string) {
	usageWidth := max(termWidth-len(indent(2))-leftWidth-len(right)-3, 10)
	lines := wrapText(usage, usageWidth)
	if len(lines) == 0 {
		lines = []string{""}
	}
	if right != "" {
		fmt.Fprintf(sb, "%s%-*s %-*s  %s\n", indent(2), leftWidth, left, usageWidth, lines[0], right)
	} else {
		fmt.Fprintf(sb, "%s%-*s %s\n", indent(2), leftWidth, left, lines[0])
	}
	for _, line := range lines[1:] {
		fmt.Fprintf(sb, "%s%s %s\n", indent(2), strings.Repeat(" ", leftWidth), line)
	}
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 80
	}
	return max(width, 20)
}

func wrapText(text string, maxWidth int) []string {
	words := strings.Fields(text)
	if maxWidth <= 0 || len(words) == 0 {
		return words
	}
	var lines []string
	var line strings.Builder
	for _, word := range words {
		if line.Len() > 0 && line.Len()+len(word)+1 > maxWidth {
			lines = append(lines, line.String())
			line.Reset()
		}
		if line.Len() > 0 {
			line.WriteByte(' ')
		}
		line.WriteString(word)
	}
	if line.Len() > 0 {
		lines = append(lines, line.String())
	}
	return lines
}
