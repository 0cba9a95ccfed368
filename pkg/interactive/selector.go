package interactive

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/DipoleDigital/MongoDBBackup/internal/gateway"
)

// CollectionSelector prompts for the collections to include in a backup
// or restore run.
type CollectionSelector struct {
	reader *bufio.Reader
	out    io.Writer
}

func NewCollectionSelector(in io.Reader, out io.Writer) *CollectionSelector {
	return &CollectionSelector{
		reader: bufio.NewReader(in),
		out:    out,
	}
}

// SelectFromInfos shows a numbered table of collections with document
// counts and returns the chosen names. An unknown count renders as n/a.
func (cs *CollectionSelector) SelectFromInfos(infos []gateway.CollectionInfo) ([]string, error) {
	if len(infos) == 0 {
		return nil, fmt.Errorf("no collections found")
	}

	fmt.Fprintln(cs.out)
	fmt.Fprintln(cs.out, "Available collections:")
	fmt.Fprintln(cs.out, strings.Repeat("=", 60))
	fmt.Fprintf(cs.out, "%-4s %-40s %-12s\n", "No", "Collection", "Documents")
	fmt.Fprintln(cs.out, strings.Repeat("-", 60))
	for i, info := range infos {
		count := "n/a"
		if info.Count >= 0 {
			count = strconv.FormatInt(info.Count, 10)
		}
		fmt.Fprintf(cs.out, "%-4d %-40s %-12s\n", i+1, info.Name, count)
	}
	fmt.Fprintln(cs.out, strings.Repeat("=", 60))

	names := make([]string, len(infos))
	for i, info := range infos {
		names[i] = info.Name
	}

	return cs.pick(names)
}

// SelectFromNames is the variant used on the restore side, where only
// directory names are known.
func (cs *CollectionSelector) SelectFromNames(names []string) ([]string, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("no collections found")
	}

	fmt.Fprintln(cs.out)
	fmt.Fprintln(cs.out, "Available collections in backup directory:")
	for i, name := range names {
		fmt.Fprintf(cs.out, "%d. %s\n", i+1, name)
	}

	return cs.pick(names)
}

func (cs *CollectionSelector) pick(names []string) ([]string, error) {
	for {
		fmt.Fprintf(cs.out, "\nEnter collection numbers (comma-separated, or 'all'): ")

		input, err := cs.reader.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("unable to read input: %w", err)
		}

		input = strings.TrimSpace(input)
		if input == "" {
			fmt.Fprintln(cs.out, "Please enter numbers or 'all'.")
			continue
		}

		if strings.EqualFold(input, "all") {
			return names, nil
		}

		var selected []string
		valid := true
		for _, token := range strings.Split(input, ",") {
			choice, err := strconv.Atoi(strings.TrimSpace(token))
			if err != nil || choice < 1 || choice > len(names) {
				fmt.Fprintf(cs.out, "Please enter numbers between 1 and %d.\n", len(names))
				valid = false
				break
			}
			selected = append(selected, names[choice-1])
		}
		if !valid {
			continue
		}

		return selected, nil
	}
}

// ConfirmDrop asks whether destination collections should be dropped
// before restoring. Defaults to no.
func (cs *CollectionSelector) ConfirmDrop() bool {
	fmt.Fprint(cs.out, "\nDrop existing collections before restore? (y/N): ")

	input, err := cs.reader.ReadString('\n')
	if err != nil {
		return false
	}

	input = strings.ToLower(strings.TrimSpace(input))
	return input == "y" || input == "yes"
}

// ConfirmAction is a generic yes/no gate, defaulting to no.
func (cs *CollectionSelector) ConfirmAction(action, target string) bool {
	fmt.Fprintf(cs.out, "\nConfirm running %s for %s (y/N): ", action, target)

	input, err := cs.reader.ReadString('\n')
	if err != nil {
		return false
	}

	input = strings.ToLower(strings.TrimSpace(input))
	return input == "y" || input == "yes"
}
