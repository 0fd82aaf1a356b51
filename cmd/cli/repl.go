package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"
)

const (
	PromptColor  = "\033[36m" // Cyan
	ErrorColor   = "\033[31m" // Red
	SuccessColor = "\033[32m" // Green
	ResetColor   = "\033[0m"
	BoldColor    = "\033[1m"
)

const maxHistory = 1000

var keywords = []string{"SELECT", "INSERT", "INTO", "VALUES", "UPDATE", "SET", "DELETE", "FROM", "WHERE", "AND"}

// CLI holds the interactive session state.
type CLI struct {
	app         *App
	out         io.Writer
	history     []string
	historyFile string
	quit        bool
}

// NewReplCommand creates the repl command.
func NewReplCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive session",
		Long: `Start an interactive session. Statements end with ';' and may span
several lines. Type .help for commands and .quit to exit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rootOpts.open(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			cli := &CLI{
				app:         app,
				out:         app.Out,
				historyFile: getHistoryPath(),
			}
			return cli.runInteractive()
		},
	}
}

func (cli *CLI) printBanner() {
	fmt.Fprintln(cli.out)
	fmt.Fprintf(cli.out, "%s%sDocQL v%s%s (%s store)\n", BoldColor, PromptColor, Version, ResetColor, cli.app.Config.Store.Backend)
	fmt.Fprintln(cli.out, "Type .help for commands, .quit to exit")
	fmt.Fprintln(cli.out)
}

// runInteractive drives the session from a liner terminal.
func (cli *CLI) runInteractive() error {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetCompleter(complete)

	cli.loadHistory()
	for _, entry := range cli.history {
		line.AppendHistory(entry)
	}
	defer cli.saveHistory()

	cli.printBanner()

	return cli.run(func(prompt string) (string, error) {
		input, err := line.Prompt(prompt)
		if errors.Is(err, liner.ErrPromptAborted) {
			return "", nil
		}
		if err == nil && strings.TrimSpace(input) != "" {
			line.AppendHistory(input)
		}
		return input, err
	})
}

// run reads input with prompt until .quit or end of input.
func (cli *CLI) run(prompt func(string) (string, error)) error {
	var buffer strings.Builder

	for !cli.quit {
		input, err := prompt(cli.getPrompt(buffer.Len() > 0))
		if err == io.EOF {
			fmt.Fprintf(cli.out, "\n%sGoodbye!%s\n", SuccessColor, ResetColor)
			return nil
		}
		if err != nil {
			return err
		}

		cli.handleInput(input, &buffer)
	}
	return nil
}

// handleInput processes one line of input, accumulating statements in
// buffer until they end with ';'.
func (cli *CLI) handleInput(input string, buffer *strings.Builder) {
	input = strings.TrimRight(input, "\r\n")
	if strings.TrimSpace(input) == "" {
		return
	}

	if buffer.Len() == 0 && strings.HasPrefix(strings.TrimSpace(input), ".") {
		cli.handleCommand(input)
		return
	}

	buffer.WriteString(input)
	trimmed := strings.TrimSpace(buffer.String())
	if !strings.HasSuffix(trimmed, ";") {
		buffer.WriteString(" ")
		return
	}
	buffer.Reset()

	query := strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	if query == "" {
		return
	}

	cli.addToHistory(query + ";")
	cli.execute(query)
}

func (cli *CLI) execute(query string) {
	result, err := cli.app.Engine.Execute(cli.app.contextOrBackground(), query)
	if err != nil {
		fmt.Fprintf(cli.out, "%s✗ Error: %v%s\n", ErrorColor, err, ResetColor)
		return
	}
	if err := writeResult(cli.out, cli.app.Format, result); err != nil {
		fmt.Fprintf(cli.out, "%s✗ Error: %v%s\n", ErrorColor, err, ResetColor)
	}
}

func (cli *CLI) getPrompt(multiLine bool) string {
	if multiLine {
		return "   ...> "
	}
	return "docql> "
}

func (cli *CLI) handleCommand(input string) {
	parts := strings.Fields(strings.TrimSpace(input))
	if len(parts) == 0 {
		return
	}

	switch strings.ToLower(parts[0]) {
	case ".quit", ".exit", ".q":
		fmt.Fprintf(cli.out, "%sGoodbye!%s\n", SuccessColor, ResetColor)
		cli.quit = true

	case ".help", ".h", ".?":
		cli.printHelp()

	case ".collections", ".c":
		cli.showCollections()

	case ".format":
		if len(parts) < 2 || !slices.Contains(ValidFormats, parts[1]) {
			fmt.Fprintf(cli.out, "%s✗ Usage: .format text|json|yaml%s\n", ErrorColor, ResetColor)
			return
		}
		cli.app.Format = parts[1]
		fmt.Fprintf(cli.out, "%s✓ Output format: %s%s\n", SuccessColor, parts[1], ResetColor)

	case ".import":
		if len(parts) < 2 {
			fmt.Fprintf(cli.out, "%s✗ Usage: .import <file.sql>%s\n", ErrorColor, ResetColor)
			return
		}
		if err := cli.importFile(parts[1]); err != nil {
			fmt.Fprintf(cli.out, "%s✗ Error: %v%s\n", ErrorColor, err, ResetColor)
		}

	case ".history":
		cli.printHistory()

	case ".clear", ".cls":
		fmt.Fprint(cli.out, "\033[H\033[2J")

	case ".version":
		fmt.Fprintf(cli.out, "DocQL version %s\n", Version)

	default:
		fmt.Fprintf(cli.out, "%s✗ Unknown command: %s (type .help for commands)%s\n", ErrorColor, parts[0], ResetColor)
	}
}

func (cli *CLI) printHelp() {
	fmt.Fprintln(cli.out)
	fmt.Fprintf(cli.out, "%s%sSpecial Commands:%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Fprintln(cli.out, "  .help, .h           Show this help message")
	fmt.Fprintln(cli.out, "  .quit, .exit        Exit the session")
	fmt.Fprintln(cli.out, "  .collections        List collections")
	fmt.Fprintln(cli.out, "  .format <f>         Set output format (text, json, yaml)")
	fmt.Fprintln(cli.out, "  .import <file>      Execute statements from a file, s3:// or http(s) URL")
	fmt.Fprintln(cli.out, "  .history            Show statement history")
	fmt.Fprintln(cli.out, "  .clear              Clear the screen")
	fmt.Fprintln(cli.out, "  .version            Show version info")
	fmt.Fprintln(cli.out)
	fmt.Fprintf(cli.out, "%s%sStatements:%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Fprintln(cli.out, "  SELECT <fields|*> FROM <collection> [WHERE <conditions>];")
	fmt.Fprintln(cli.out, "  INSERT INTO <collection> (<fields>) VALUES (<values>);")
	fmt.Fprintln(cli.out, "  UPDATE <collection> SET (<field>=<value>, ...) [WHERE <conditions>];")
	fmt.Fprintln(cli.out, "  DELETE FROM <collection> [WHERE <conditions>];")
	fmt.Fprintln(cli.out)
	fmt.Fprintln(cli.out, "Conditions use =, !=, >, >=, <, <= joined by AND.")
	fmt.Fprintln(cli.out)
}

func (cli *CLI) showCollections() {
	names, err := cli.app.Instance.Collections(cli.app.contextOrBackground())
	if err != nil {
		fmt.Fprintf(cli.out, "%s✗ Error: %v%s\n", ErrorColor, err, ResetColor)
		return
	}
	if len(names) == 0 {
		fmt.Fprintln(cli.out, "no collections")
		return
	}
	for _, name := range names {
		fmt.Fprintf(cli.out, "  %s\n", name)
	}
}

// importFile executes every statement of a script, reporting each one.
func (cli *CLI) importFile(path string) error {
	script, err := readScript(cli.app, path)
	if err != nil {
		return err
	}

	succeeded, failed := 0, 0
	for i, query := range script {
		result, err := cli.app.Engine.Execute(cli.app.contextOrBackground(), query)
		if err != nil {
			fmt.Fprintf(cli.out, "%s[%d] ✗ %s%s\n", ErrorColor, i+1, truncate(query, 50), ResetColor)
			fmt.Fprintf(cli.out, "      Error: %v\n", err)
			failed++
			continue
		}
		succeeded++
		fmt.Fprintf(cli.out, "%s[%d] ✓ %s (%s)%s\n", SuccessColor, i+1, truncate(query, 50), result.Type(), ResetColor)
	}

	fmt.Fprintf(cli.out, "\n%s✓ Import complete: %d succeeded, %d failed%s\n",
		SuccessColor, succeeded, failed, ResetColor)
	return nil
}

func (cli *CLI) addToHistory(entry string) {
	if len(cli.history) > 0 && cli.history[len(cli.history)-1] == entry {
		return
	}
	cli.history = append(cli.history, entry)
	if len(cli.history) > maxHistory {
		cli.history = cli.history[len(cli.history)-maxHistory:]
	}
}

func (cli *CLI) printHistory() {
	if len(cli.history) == 0 {
		fmt.Fprintln(cli.out, "No command history")
		return
	}

	start := max(0, len(cli.history)-20)
	for i := start; i < len(cli.history); i++ {
		fmt.Fprintf(cli.out, "  %3d  %s\n", i+1, cli.history[i])
	}
}

func getHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".docql_history")
}

func (cli *CLI) loadHistory() {
	if cli.historyFile == "" {
		return
	}

	file, err := os.Open(cli.historyFile)
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		cli.history = append(cli.history, scanner.Text())
	}
}

func (cli *CLI) saveHistory() {
	if cli.historyFile == "" {
		return
	}

	file, err := os.Create(cli.historyFile)
	if err != nil {
		return
	}
	defer file.Close()

	start := max(0, len(cli.history)-maxHistory)
	for _, entry := range cli.history[start:] {
		fmt.Fprintln(file, entry)
	}
}

// complete upper-cases a partially typed keyword at the end of the line.
func complete(line string) []string {
	cut := strings.LastIndexAny(line, " \t") + 1
	prefix, word := line[:cut], strings.ToUpper(line[cut:])
	if word == "" {
		return nil
	}

	var candidates []string
	for _, keyword := range keywords {
		if strings.HasPrefix(keyword, word) {
			candidates = append(candidates, prefix+keyword)
		}
	}
	return candidates
}
