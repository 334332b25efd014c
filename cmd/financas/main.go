package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"financas/internal/api"
	"financas/internal/config"
	apperrors "financas/internal/errors"
	"financas/internal/filter"
	"financas/internal/format"
	"financas/internal/ledger"
	"financas/internal/logger"
	"financas/internal/models"
	"financas/internal/money"
	"financas/internal/session"
	"financas/internal/stats"
	"financas/internal/store"
)

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// app wires the session manager, API client, and ledger store together
// for one CLI invocation.
type app struct {
	session *session.Manager
	ledger  *ledger.Store
}

func run(args []string) error {
	if len(args) == 0 {
		usage()
		return nil
	}
	command, rest := args[0], args[1:]

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	sessions, err := store.Open(cfg.StatePath)
	if err != nil {
		return err
	}
	defer sessions.Close()

	manager := session.NewManager(sessions)
	client := api.New(cfg.APIBaseURL, cfg.HTTPTimeout, manager)
	client.OnUnauthorized(manager.Expire)
	manager.SetAuthenticator(client)

	if err := manager.Restore(); err != nil {
		logger.Get().Warnw("starting without a restored session", "error", err)
	}

	// Navigation signal: after restore, transitions tell the user
	// where they landed.
	manager.OnChange(func(u *models.User) {
		if u != nil {
			fmt.Printf("Signed in as %s <%s>. Run 'financas stats' for your dashboard.\n", u.Name, u.Email)
			return
		}
		fmt.Println("Signed out. Run 'financas login' to sign in.")
	})

	a := &app{
		session: manager,
		ledger:  ledger.NewStore(client),
	}

	ctx := context.Background()
	switch command {
	case "register":
		return a.register(ctx, rest)
	case "login":
		return a.login(ctx, rest)
	case "logout":
		a.session.Logout()
		return nil
	case "whoami":
		return a.whoami()
	case "list":
		return a.list(ctx, rest)
	case "get":
		return a.get(ctx, rest)
	case "add":
		return a.add(ctx, rest)
	case "edit":
		return a.edit(ctx, rest)
	case "delete":
		return a.delete(ctx, rest)
	case "categories":
		return a.categories(ctx)
	case "stats":
		return a.stats(ctx, rest)
	case "help", "-h", "--help":
		usage()
		return nil
	default:
		usage()
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "unknown command: "+command)
	}
}

func usage() {
	fmt.Println(`financas - personal finance ledger

Usage:
  financas register -name NAME -email EMAIL -password PASSWORD
  financas login -email EMAIL -password PASSWORD
  financas logout
  financas whoami
  financas list [-q QUERY] [-type all|income|expense] [-recent N]
  financas get ID
  financas add -type income|expense -amount AMOUNT -desc TEXT -category NAME_OR_ID [-date YYYY-MM-DD] [-attachment URL]
  financas edit ID -type ... -amount ... -desc ... -category ... [-date ...] [-attachment ...]
  financas delete ID
  financas categories
  financas stats [-from YYYY-MM-DD -to YYYY-MM-DD]`)
}

func (a *app) requireAuth() error {
	if !a.session.IsAuthenticated() {
		return apperrors.WithMessage(apperrors.ErrUnauthenticated, "Sign in first: financas login -email EMAIL -password PASSWORD")
	}
	return nil
}

func (a *app) register(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	name := fs.String("name", "", "full name")
	email := fs.String("email", "", "email address")
	password := fs.String("password", "", "password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	_, err := a.session.Register(ctx, *name, *email, *password)
	return err
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", "", "email address")
	password := fs.String("password", "", "password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	_, err := a.session.Login(ctx, *email, *password)
	return err
}

func (a *app) whoami() error {
	user := a.session.CurrentUser()
	if user == nil {
		fmt.Println("Not signed in.")
		return nil
	}
	fmt.Printf("%s <%s>\n", user.Name, user.Email)
	return nil
}

func (a *app) list(ctx context.Context, args []string) error {
	if err := a.requireAuth(); err != nil {
		return err
	}

	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	query := fs.String("q", "", "free-text search over descriptions")
	typeArg := fs.String("type", "all", "all, income, or expense")
	recent := fs.Int("recent", 0, "show only the N most recent transactions")
	if err := fs.Parse(args); err != nil {
		return err
	}

	typeFilter, ok := filter.ParseTypeFilter(*typeArg)
	if !ok {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "-type must be all, income, or expense")
	}

	transactions, err := a.ledger.List(ctx)
	if err != nil {
		return err
	}
	transactions = filter.Apply(transactions, *query, typeFilter)
	if *recent > 0 {
		transactions = filter.Recent(transactions, *recent)
	}

	if len(transactions) == 0 {
		fmt.Println("No transactions found.")
		return nil
	}
	printTransactions(transactions)
	return nil
}

func (a *app) get(ctx context.Context, args []string) error {
	if err := a.requireAuth(); err != nil {
		return err
	}
	if len(args) != 1 {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "usage: financas get ID")
	}

	tx, err := a.ledger.Get(ctx, args[0])
	if err != nil {
		return err
	}
	printTransactions([]models.Transaction{*tx})
	return nil
}

func (a *app) add(ctx context.Context, args []string) error {
	if err := a.requireAuth(); err != nil {
		return err
	}

	req, err := a.parseTransactionFlags(ctx, "add", args, nil)
	if err != nil {
		return err
	}

	tx, err := a.ledger.Create(ctx, *req)
	if err != nil {
		return err
	}
	fmt.Printf("Created %s: %s %s\n", tx.ID, tx.Description, format.Signed(*tx))
	return nil
}

func (a *app) edit(ctx context.Context, args []string) error {
	if err := a.requireAuth(); err != nil {
		return err
	}
	if len(args) < 1 || strings.HasPrefix(args[0], "-") {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "usage: financas edit ID [flags]")
	}
	id := args[0]

	current, err := a.ledger.Get(ctx, id)
	if err != nil {
		return err
	}

	req, err := a.parseTransactionFlags(ctx, "edit", args[1:], current)
	if err != nil {
		return err
	}

	tx, err := a.ledger.Update(ctx, id, *req)
	if err != nil {
		return err
	}
	fmt.Printf("Updated %s: %s %s\n", tx.ID, tx.Description, format.Signed(*tx))
	return nil
}

func (a *app) delete(ctx context.Context, args []string) error {
	if err := a.requireAuth(); err != nil {
		return err
	}
	if len(args) != 1 {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "usage: financas delete ID")
	}

	if err := a.ledger.Delete(ctx, args[0]); err != nil {
		return err
	}
	fmt.Println("Deleted", args[0])
	return nil
}

func (a *app) categories(ctx context.Context) error {
	if err := a.requireAuth(); err != nil {
		return err
	}

	categories, err := a.ledger.Categories(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTYPE")
	for _, c := range categories {
		fmt.Fprintf(w, "%s\t%s\t%s\n", c.ID, c.Name, c.Type)
	}
	return w.Flush()
}

func (a *app) stats(ctx context.Context, args []string) error {
	if err := a.requireAuth(); err != nil {
		return err
	}

	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	fromArg := fs.String("from", "", "period start (YYYY-MM-DD)")
	toArg := fs.String("to", "", "period end (YYYY-MM-DD)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	transactions, err := a.ledger.List(ctx)
	if err != nil {
		return err
	}

	var result stats.DashboardStats
	if *fromArg != "" || *toArg != "" {
		from, to, err := parsePeriod(*fromArg, *toArg)
		if err != nil {
			return err
		}
		result = stats.AggregatePeriod(transactions, from, to)
	} else {
		result = stats.Aggregate(transactions)
	}

	fmt.Println("Receitas: ", format.Currency(result.TotalIncome))
	fmt.Println("Despesas: ", format.Currency(result.TotalExpense))
	fmt.Println("Saldo:    ", format.Currency(result.Balance))
	fmt.Println("Transações:", result.TransactionCount)
	printBreakdown("Receitas por categoria", result.IncomesByCategory)
	printBreakdown("Despesas por categoria", result.ExpensesByCategory)
	return nil
}

// parseTransactionFlags builds a TransactionRequest from flags. When
// current is non-nil (edit), unset flags keep the current values.
func (a *app) parseTransactionFlags(ctx context.Context, name string, args []string, current *models.Transaction) (*models.TransactionRequest, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	typeArg := fs.String("type", "", "income or expense")
	amountArg := fs.String("amount", "", "amount, e.g. 123.45")
	descArg := fs.String("desc", "", "description")
	dateArg := fs.String("date", "", "calendar date (YYYY-MM-DD), defaults to today")
	categoryArg := fs.String("category", "", "category name or id")
	attachmentArg := fs.String("attachment", "", "attachment reference")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	req := &models.TransactionRequest{}
	if current != nil {
		req.Type = current.Type
		req.Amount = current.Amount
		req.Description = current.Description
		req.Date = current.Date
		req.CategoryID = current.Category.ID
		req.Attachment = current.Attachment
	} else {
		req.Date = models.DateOf(time.Now())
	}

	if *typeArg != "" {
		req.Type = models.TransactionType(strings.ToUpper(*typeArg))
	}
	if *amountArg != "" {
		amount, err := money.ParseDecimal(*amountArg)
		if err != nil {
			return nil, apperrors.NewValidation(map[string]string{"amount": "must be a positive decimal"})
		}
		req.Amount = amount
	}
	if *descArg != "" {
		req.Description = *descArg
	}
	if *dateArg != "" {
		date, err := models.ParseDate(*dateArg)
		if err != nil {
			return nil, apperrors.NewValidation(map[string]string{"date": "must be YYYY-MM-DD"})
		}
		req.Date = date
	}
	if *attachmentArg != "" {
		req.Attachment = *attachmentArg
	}
	if *categoryArg != "" {
		id, err := a.resolveCategory(ctx, *categoryArg)
		if err != nil {
			return nil, err
		}
		req.CategoryID = id
	}
	return req, nil
}

// resolveCategory accepts a category id or a case-insensitive name.
func (a *app) resolveCategory(ctx context.Context, ref string) (string, error) {
	categories, err := a.ledger.Categories(ctx)
	if err != nil {
		return "", err
	}
	for _, c := range categories {
		if c.ID == ref {
			return c.ID, nil
		}
	}
	for _, c := range categories {
		if strings.EqualFold(c.Name, ref) {
			return c.ID, nil
		}
	}
	return "", apperrors.NewValidation(map[string]string{"categoryId": "no category named " + ref})
}

func parsePeriod(fromArg, toArg string) (models.Date, models.Date, error) {
	if fromArg == "" || toArg == "" {
		return models.Date{}, models.Date{}, apperrors.WithMessage(apperrors.ErrInvalidInput, "-from and -to must be given together")
	}
	from, err := models.ParseDate(fromArg)
	if err != nil {
		return models.Date{}, models.Date{}, apperrors.NewValidation(map[string]string{"from": "must be YYYY-MM-DD"})
	}
	to, err := models.ParseDate(toArg)
	if err != nil {
		return models.Date{}, models.Date{}, apperrors.NewValidation(map[string]string{"to": "must be YYYY-MM-DD"})
	}
	if to.Before(from) {
		return models.Date{}, models.Date{}, apperrors.WithMessage(apperrors.ErrInvalidInput, "-to must not be before -from")
	}
	return from, to, nil
}

func printTransactions(transactions []models.Transaction) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDATE\tDESCRIPTION\tCATEGORY\tAMOUNT")
	for _, t := range transactions {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			t.ID, format.Date(t.Date), t.Description, t.Category.Name, format.Signed(t))
	}
	_ = w.Flush()
}

func printBreakdown(title string, byCategory map[string]money.Money) {
	if len(byCategory) == 0 {
		return
	}
	names := make([]string, 0, len(byCategory))
	for name := range byCategory {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println(title + ":")
	for _, name := range names {
		fmt.Printf("  %s: %s\n", name, format.Currency(byCategory[name]))
	}
}
