package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nikbrunner/folderlink/internal/config"
	"github.com/nikbrunner/folderlink/internal/invite"
	"github.com/nikbrunner/folderlink/internal/logger"
	"github.com/nikbrunner/folderlink/internal/model"
	"github.com/nikbrunner/folderlink/internal/overview"
	"github.com/nikbrunner/folderlink/internal/picker"
	"github.com/nikbrunner/folderlink/internal/search"
	"github.com/nikbrunner/folderlink/internal/service"
	"github.com/nikbrunner/folderlink/internal/storage"
	"github.com/nikbrunner/folderlink/internal/transport"
)

const overviewConcurrency = 4

var (
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("99")).Bold(true)
	linkStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	revokedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Strikethrough(true)
	memberStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Italic(true)
)

func main() {
	if len(os.Args) < 2 {
		printHelp()
		return
	}

	cmd, args := os.Args[1], os.Args[2:]
	if cmd == "help" || cmd == "--help" || cmd == "-h" {
		printHelp()
		return
	}

	run, ok := commands[cmd]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown command %q. Run 'folderlink help'.\n", cmd)
		os.Exit(2)
	}

	a, err := newApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logger.Context(ctx, a.log.With("command", cmd))

	if err := run(ctx, a, args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		a.close()
		os.Exit(1)
	}
}

var commands = map[string]func(context.Context, *app, []string) error{
	"folders":      runFolders,
	"folder-set":   runFolderSet,
	"peers":        runPeers,
	"links":        runLinks,
	"export":       runExport,
	"edit":         runEdit,
	"revoke":       runRevoke,
	"delete":       runDelete,
	"check":        runCheck,
	"join":         runJoin,
	"updates":      runUpdates,
	"join-updates": runJoinUpdates,
	"hide-updates": runHideUpdates,
}

func printHelp() {
	help := `folderlink - share and join chat folders by invite link

Usage:
  folderlink folders                              List folders with link and update status
  folderlink folder-set <folder> <title> [peer...] Create or replace a local folder
  folderlink peers <query>                        Fuzzy search known chats
  folderlink links <folder>                       List a folder's invite links
  folderlink export [--copy] [--title T] <folder> [peer...]
                                                  Create a link (default: all shareable chats)
  folderlink edit [--title T] [--peers a,b] [--revoke] <folder> <link>
                                                  Change a link's title, chats or state
  folderlink revoke <folder> <link>               Revoke a link
  folderlink delete <folder> <link>               Delete a link
  folderlink check <link>                         Show what joining a link would add
  folderlink join [--pick] <link> [peer...]       Join a link (default: all new chats)
  folderlink updates <folder>                     Show chats added to a joined folder
  folderlink join-updates [--pick] <folder> [peer...]
                                                  Join chats added to a joined folder
  folderlink hide-updates <folder>                Stop suggesting updates for a folder
  folderlink help                                 Show this help

Peers are chat ids or names; names are resolved by fuzzy search over known chats.
Links may be given as https://t.me/folder/<slug> or as the bare slug.

Configuration:
  ~/.config/folderlink/config.json, overridden by FOLDERLINK_* variables and .env
`
	fmt.Print(help)
}

// app holds the wired dependencies of a command.
type app struct {
	store *storage.SQLStore
	svc   *service.Service
	log   *slog.Logger
}

func newApp() (*app, error) {
	configPath, err := config.DefaultConfigFilePath()
	if err != nil {
		return nil, fmt.Errorf("config path: %w", err)
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	log := logger.SetupDefault(cfg.Logger)

	store, err := storage.Open(cfg.StoreDSN)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	client := invite.NewClient(invite.ClientParams{
		Transport: transport.New(transport.Params{
			BaseURL: cfg.API.URL,
			Token:   cfg.API.Token,
			Timeout: cfg.API.Timeout.Duration(),
		}),
		Store: store,
		Updates: invite.UpdateSinkFunc(func(ctx context.Context, u model.Updates) {
			logger.FromContext(ctx).Info("received updates", "bytes", len(u.Raw))
		}),
		Logger: log,
	})

	return &app{
		store: store,
		svc:   service.New(service.Params{Client: client, Store: store}),
		log:   log,
	}, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.log.Warn("close store", "error", err)
	}
}

// resolvePeers maps ids or names to peer ids using the local directory.
func (a *app) resolvePeers(ctx context.Context, queries []string) ([]model.PeerID, error) {
	if len(queries) == 0 {
		return nil, nil
	}
	peers, err := a.store.ListPeers(ctx)
	if err != nil {
		return nil, err
	}
	ids, unmatched := search.ResolvePeerIDs(peers, queries)
	if len(unmatched) > 0 {
		return nil, fmt.Errorf("no chat matches %s", strings.Join(unmatched, ", "))
	}
	return ids, nil
}

func parseFolderID(s string) (int32, error) {
	id, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid folder id %q", s)
	}
	return int32(id), nil
}

func requireArgs(args []string, n int, usage string) error {
	if len(args) < n {
		return fmt.Errorf("usage: folderlink %s", usage)
	}
	return nil
}

// pick runs the interactive chat picker. ok is false if the user cancelled.
func pick(title string, items []picker.Item) (ids []model.PeerID, ok bool, err error) {
	final, err := tea.NewProgram(picker.New(title, items)).Run()
	if err != nil {
		return nil, false, fmt.Errorf("run picker: %w", err)
	}
	p := final.(picker.Picker)
	if p.Cancelled() {
		return nil, false, nil
	}
	return p.Selected(), true, nil
}

func printLink(link model.FolderLink) {
	url := linkStyle.Render(link.Link)
	if link.IsRevoked {
		url = revokedStyle.Render(link.Link) + dimStyle.Render(" (revoked)")
	}
	fmt.Printf("%s  %s\n", url, link.Title)
	fmt.Printf("   %s\n", dimStyle.Render(fmt.Sprintf("%d chats", len(link.PeerIDs))))
}

func printPeer(p model.Peer, member bool) {
	line := fmt.Sprintf("%d  %s", p.ID, p.Title)
	if p.Username != "" {
		line += " @" + p.Username
	}
	line += dimStyle.Render(" " + p.Kind.String())
	if member {
		line += memberStyle.Render(" joined")
	}
	fmt.Println(line)
}

func runFolders(ctx context.Context, a *app, _ []string) error {
	folders, err := a.svc.Folders(ctx)
	if err != nil {
		return err
	}
	if len(folders) == 0 {
		fmt.Println("No folders. Create one with 'folderlink folder-set'.")
		return nil
	}

	results := overview.Collect(ctx, a.svc, folders, overviewConcurrency, func(completed, total int) {
		fmt.Fprintf(os.Stderr, "\rFetching %d/%d", completed, total)
	})
	fmt.Fprintln(os.Stderr)

	for _, r := range results {
		line := fmt.Sprintf("%s %s  %s", headerStyle.Render(strconv.Itoa(int(r.Folder.ID))), r.Folder.Title, dimStyle.Render(r.Status.String()))
		if r.Updates != nil && r.Updates.AvailableChatsToJoin() > 0 {
			line += memberStyle.Render(fmt.Sprintf("  +%d chats to join", r.Updates.AvailableChatsToJoin()))
		}
		fmt.Println(line)
	}
	return nil
}

func runFolderSet(ctx context.Context, a *app, args []string) error {
	if err := requireArgs(args, 2, "folder-set <folder> <title> [peer...]"); err != nil {
		return err
	}
	id, err := parseFolderID(args[0])
	if err != nil {
		return err
	}
	peerIDs, err := a.resolvePeers(ctx, args[2:])
	if err != nil {
		return err
	}
	folder := model.NewFolder(model.NewFolderParams{ID: id, Title: args[1], IncludePeers: peerIDs})
	if err := a.svc.SaveFolder(ctx, folder); err != nil {
		return err
	}
	fmt.Printf("Saved folder %d %q with %d chats\n", id, folder.Title, len(folder.IncludePeers))
	return nil
}

func runPeers(ctx context.Context, a *app, args []string) error {
	peers, err := a.store.ListPeers(ctx)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		for _, p := range peers {
			printPeer(p, false)
		}
		return nil
	}

	query := strings.Join(args, " ")
	results := search.FuzzySearchPeers(peers, query)
	if len(results) == 0 {
		fmt.Printf("No chats found for '%s'\n", query)
		return nil
	}
	for _, r := range results {
		printPeer(r.Peer, false)
	}
	return nil
}

func runLinks(ctx context.Context, a *app, args []string) error {
	if err := requireArgs(args, 1, "links <folder>"); err != nil {
		return err
	}
	id, err := parseFolderID(args[0])
	if err != nil {
		return err
	}
	links := a.svc.Links(ctx, id)
	if links == nil {
		return errors.New("links are not available")
	}
	if len(links) == 0 {
		fmt.Println("No links")
		return nil
	}
	for _, l := range links {
		printLink(l)
	}
	return nil
}

func runExport(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	copyLink := fs.Bool("copy", false, "copy the new link to the clipboard")
	title := fs.String("title", "", "link title (default: folder title)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireArgs(fs.Args(), 1, "export [--copy] [--title T] <folder> [peer...]"); err != nil {
		return err
	}
	id, err := parseFolderID(fs.Arg(0))
	if err != nil {
		return err
	}

	var link model.FolderLink
	if fs.NArg() > 1 {
		peerIDs, err := a.resolvePeers(ctx, fs.Args()[1:])
		if err != nil {
			return err
		}
		link, err = a.svc.ExportLink(ctx, id, *title, peerIDs)
		if err != nil {
			return err
		}
	} else {
		link, err = a.svc.CreateLink(ctx, id, *title)
		if err != nil {
			return err
		}
	}

	printLink(link)
	if *copyLink {
		if err := clipboard.WriteAll(link.Link); err != nil {
			return fmt.Errorf("copy to clipboard: %w", err)
		}
		fmt.Println(dimStyle.Render("Copied to clipboard"))
	}
	return nil
}

func runEdit(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("edit", flag.ContinueOnError)
	title := fs.String("title", "", "new link title")
	peers := fs.String("peers", "", "comma-separated chats; empty string clears")
	revoke := fs.Bool("revoke", false, "revoke the link")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireArgs(fs.Args(), 2, "edit [--title T] [--peers a,b] [--revoke] <folder> <link>"); err != nil {
		return err
	}
	id, err := parseFolderID(fs.Arg(0))
	if err != nil {
		return err
	}

	params := service.EditParams{Revoke: *revoke}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "title":
			params.Title = title
		case "peers":
			params.PeerIDs = []model.PeerID{}
		}
	})
	if params.PeerIDs != nil && *peers != "" {
		ids, err := a.resolvePeers(ctx, strings.Split(*peers, ","))
		if err != nil {
			return err
		}
		params.PeerIDs = ids
	}

	link, err := a.svc.EditLink(ctx, id, model.FolderLink{Link: fs.Arg(1)}, params)
	if err != nil {
		return err
	}
	printLink(link)
	return nil
}

func runRevoke(ctx context.Context, a *app, args []string) error {
	if err := requireArgs(args, 2, "revoke <folder> <link>"); err != nil {
		return err
	}
	id, err := parseFolderID(args[0])
	if err != nil {
		return err
	}
	link, err := a.svc.RevokeLink(ctx, id, model.FolderLink{Link: args[1]})
	if err != nil {
		return err
	}
	printLink(link)
	return nil
}

func runDelete(ctx context.Context, a *app, args []string) error {
	if err := requireArgs(args, 2, "delete <folder> <link>"); err != nil {
		return err
	}
	id, err := parseFolderID(args[0])
	if err != nil {
		return err
	}
	if err := a.svc.DeleteLink(ctx, id, model.FolderLink{Link: args[1]}); err != nil {
		return err
	}
	fmt.Println("Deleted")
	return nil
}

func contentsTitle(contents *model.FolderLinkContents) string {
	if contents.Title != nil {
		return *contents.Title
	}
	return "Folder"
}

func runCheck(ctx context.Context, a *app, args []string) error {
	if err := requireArgs(args, 1, "check <link>"); err != nil {
		return err
	}
	contents, err := a.svc.CheckLink(ctx, args[0])
	if err != nil {
		return err
	}

	header := contentsTitle(contents)
	if contents.LocalFilterID != nil {
		header += dimStyle.Render(fmt.Sprintf(" (already joined as folder %d)", *contents.LocalFilterID))
	}
	fmt.Println(headerStyle.Render(header))
	for _, p := range contents.Peers {
		printPeer(p, contents.AlreadyMemberPeerIDs.Contains(p.ID))
	}
	return nil
}

func runJoin(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("join", flag.ContinueOnError)
	interactive := fs.Bool("pick", false, "choose chats interactively")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireArgs(fs.Args(), 1, "join [--pick] <link> [peer...]"); err != nil {
		return err
	}
	link := fs.Arg(0)

	var peerIDs []model.PeerID
	switch {
	case fs.NArg() > 1:
		ids, err := a.resolvePeers(ctx, fs.Args()[1:])
		if err != nil {
			return err
		}
		peerIDs = ids
	default:
		contents, err := a.svc.CheckLink(ctx, link)
		if err != nil {
			return err
		}
		items := picker.FromContents(contents)
		if *interactive {
			ids, ok, err := pick(contentsTitle(contents), items)
			if err != nil || !ok {
				return err
			}
			peerIDs = ids
		} else {
			for _, it := range items {
				if !it.AlreadyMember {
					peerIDs = append(peerIDs, it.Peer.ID)
				}
			}
		}
	}

	if err := a.svc.JoinLink(ctx, link, peerIDs); err != nil {
		return err
	}
	fmt.Printf("Joined with %d chats\n", len(peerIDs))
	return nil
}

func runUpdates(ctx context.Context, a *app, args []string) error {
	if err := requireArgs(args, 1, "updates <folder>"); err != nil {
		return err
	}
	id, err := parseFolderID(args[0])
	if err != nil {
		return err
	}
	updates := a.svc.PendingUpdates(ctx, id)
	if updates == nil || updates.AvailableChatsToJoin() == 0 {
		fmt.Println("No updates")
		return nil
	}
	fmt.Println(headerStyle.Render(fmt.Sprintf("%d chats to join", updates.AvailableChatsToJoin())))
	for _, p := range updates.Chats {
		printPeer(p, false)
	}
	for _, p := range updates.Users {
		printPeer(p, false)
	}
	return nil
}

func runJoinUpdates(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("join-updates", flag.ContinueOnError)
	interactive := fs.Bool("pick", false, "choose chats interactively")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireArgs(fs.Args(), 1, "join-updates [--pick] <folder> [peer...]"); err != nil {
		return err
	}
	id, err := parseFolderID(fs.Arg(0))
	if err != nil {
		return err
	}

	var peerIDs []model.PeerID
	if fs.NArg() > 1 {
		peerIDs, err = a.resolvePeers(ctx, fs.Args()[1:])
		if err != nil {
			return err
		}
	} else {
		updates := a.svc.PendingUpdates(ctx, id)
		if updates == nil || updates.AvailableChatsToJoin() == 0 {
			fmt.Println("No updates")
			return nil
		}
		peerIDs = updates.MissingPeers
		if *interactive {
			items := make([]picker.Item, 0, len(updates.Chats)+len(updates.Users))
			for _, p := range append(append([]model.Peer{}, updates.Chats...), updates.Users...) {
				items = append(items, picker.Item{Peer: p})
			}
			ids, ok, err := pick(fmt.Sprintf("Folder %d updates", id), items)
			if err != nil || !ok {
				return err
			}
			peerIDs = ids
		}
	}

	if err := a.svc.JoinAvailable(ctx, id, peerIDs); err != nil {
		return err
	}
	fmt.Printf("Joined %d chats\n", len(peerIDs))
	return nil
}

func runHideUpdates(ctx context.Context, a *app, args []string) error {
	if err := requireArgs(args, 1, "hide-updates <folder>"); err != nil {
		return err
	}
	id, err := parseFolderID(args[0])
	if err != nil {
		return err
	}
	a.svc.HideUpdates(ctx, id)
	fmt.Println("Updates hidden")
	return nil
}
