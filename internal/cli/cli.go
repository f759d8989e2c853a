// Package cli implements the archive_redirector command line.
package cli

import (
	"fmt"
	"os"

	goflags "github.com/jessevdk/go-flags"

	"github.com/dgnsrekt/archive_redirector/internal/api"
)

// commands holds references to all subcommand structs for inspection/testing.
type commands struct {
	Serve        *ServeCommand
	List         *ListCommand
	Add          *AddCommand
	Remove       *RemoveCommand
	Clear        *ClearCommand
	SkipHomepage *SkipHomepageCommand
	Recommended  *RecommendedCommand
	Decide       *DecideCommand
}

// buildParser constructs the go-flags parser with all subcommands registered.
func buildParser(version string) (*goflags.Parser, *GlobalFlags, *commands) {
	var globals GlobalFlags

	parser := goflags.NewParser(&globals, goflags.Default)
	parser.Name = "archive_redirector"
	parser.LongDescription = "Redirects browser navigations on listed domains to their archive.is snapshot."

	cmds := &commands{
		Serve:        &ServeCommand{globals: &globals, version: version},
		List:         &ListCommand{globals: &globals},
		Add:          &AddCommand{globals: &globals},
		Remove:       &RemoveCommand{globals: &globals},
		Clear:        &ClearCommand{globals: &globals},
		SkipHomepage: &SkipHomepageCommand{globals: &globals},
		Recommended:  &RecommendedCommand{globals: &globals},
		Decide:       &DecideCommand{globals: &globals},
	}

	parser.AddCommand("serve", "Run the interceptor", "Attach to the browser, intercept navigations and serve the HTTP API.", cmds.Serve)
	parser.AddCommand("list", "List redirected domains", "List redirected domains in match order.", cmds.List)
	parser.AddCommand("add", "Add a domain", "Add a domain. Scheme, www. and path are stripped.", cmds.Add)
	parser.AddCommand("remove", "Remove a domain", "Remove a domain from the list.", cmds.Remove)
	parser.AddCommand("clear", "Remove every domain", "Remove every domain. Requires --force.", cmds.Clear)
	parser.AddCommand("skip-homepage", "Toggle homepage skipping", "Turn skipping of bare homepages on or off.", cmds.SkipHomepage)
	parser.AddCommand("recommended", "Add recommended domains", "Fetch the recommended domain list and add the missing entries.", cmds.Recommended)
	parser.AddCommand("decide", "Evaluate a URL", "Show what would happen to a navigation to the given URL.", cmds.Decide)

	return parser, &globals, cmds
}

// Run is the main entry point using os.Args.
func Run(version string) error {
	return RunWithArgs(version, nil)
}

// RunWithArgs parses the given args (or os.Args if nil) and executes the matched subcommand.
func RunWithArgs(version string, args []string) error {
	api.Version = version

	checkArgs := args
	if checkArgs == nil {
		checkArgs = os.Args[1:]
	}
	for _, arg := range checkArgs {
		if arg == "--version" {
			fmt.Printf("archive_redirector %s\n", version)
			return nil
		}
		if arg == "--" {
			break
		}
	}

	parser, _, _ := buildParser(version)

	var err error
	if args != nil {
		_, err = parser.ParseArgs(args)
	} else {
		_, err = parser.Parse()
	}

	if err != nil {
		if flagsErr, ok := err.(*goflags.Error); ok {
			if flagsErr.Type == goflags.ErrHelp {
				return nil
			}
		}
		return err
	}

	return nil
}
