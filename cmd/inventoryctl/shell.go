package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/shopspring/decimal"

	"inventory/internal/models"
	"inventory/internal/viewmodel"
)

const helpText = `commands:
  search <term>                       filter the list (empty term shows everything)
  refresh                             reload the current search
  list                                print the products on screen
  add <name>;<price>;<category>;<description>[;<image>]
  edit <id> <name>;<price>;<category>;<description>[;<image>]
  rm <id>                             delete a product
  categories                          print suggested categories
  quit`

// shell reads commands line by line and drives the view-model.
type shell struct {
	vm *viewmodel.ViewModel

	mu  sync.Mutex
	out io.Writer

	ok   *color.Color
	fail *color.Color
	dim  *color.Color
}

func newShell(out io.Writer) *shell {
	return &shell{
		out:  out,
		ok:   color.New(color.FgGreen),
		fail: color.New(color.FgRed, color.Bold),
		dim:  color.New(color.FgCyan),
	}
}

// onChange reports each completed fetch.
func (s *shell) onChange(st viewmodel.State) {
	if st.Loading {
		return
	}
	if st.Error != "" {
		s.printf(s.fail, "%s\n", st.Error)
		return
	}
	s.printf(s.dim, "%d products (search %q)\n", len(st.Products), st.Search)
}

func (s *shell) printf(c *color.Color, format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = c.Fprintf(s.out, format, args...)
}

// run processes commands until EOF or quit.
func (s *shell) run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			return nil
		}
		if err := s.exec(ctx, line); err != nil {
			s.printf(s.fail, "error: %v\n", err)
		}
	}
	return scanner.Err()
}

func (s *shell) exec(ctx context.Context, line string) error {
	cmd, args, _ := strings.Cut(line, " ")
	args = strings.TrimSpace(args)

	switch cmd {
	case "search":
		s.vm.SetSearch(args)
	case "refresh":
		s.vm.Refresh()
	case "list":
		s.list(s.vm.State())
	case "add":
		form, err := parseForm(viewmodel.NewProductForm(), args)
		if err != nil {
			return err
		}
		p, err := s.vm.Create(ctx, form)
		if err != nil {
			return err
		}
		s.printf(s.ok, "created %s\n", p.ID)
	case "edit":
		id, rest, _ := strings.Cut(args, " ")
		current, ok := find(s.vm.State().Products, id)
		if !ok {
			return fmt.Errorf("product %q is not on screen", id)
		}
		form, err := parseForm(viewmodel.FormFromProduct(current), rest)
		if err != nil {
			return err
		}
		if _, err := s.vm.Update(ctx, id, form); err != nil {
			return err
		}
		s.printf(s.ok, "updated %s\n", id)
	case "rm":
		if args == "" {
			return errors.New("rm needs a product id")
		}
		if err := s.vm.Delete(ctx, args); err != nil {
			return err
		}
		s.printf(s.ok, "deleted %s\n", args)
	case "categories":
		s.printf(s.dim, "%s\n", strings.Join(viewmodel.SuggestedCategories, ", "))
	case "help":
		s.printf(s.dim, "%s\n", helpText)
	default:
		return fmt.Errorf("unknown command %q (try help)", cmd)
	}
	return nil
}

func (s *shell) list(st viewmodel.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st.Loading {
		_, _ = s.dim.Fprintln(s.out, "loading...")
	}
	if st.Error != "" {
		_, _ = s.fail.Fprintln(s.out, st.Error)
	}
	for _, p := range st.Products {
		_, _ = fmt.Fprintf(s.out, "%s  %-24s %10s  %-12s %s\n",
			p.ID, p.Name, p.Price.StringFixed(2), p.Category, p.Description)
	}
}

// parseForm overlays "name;price;category;description[;image]" on form.
// Empty segments keep the form's value.
func parseForm(form viewmodel.ProductForm, args string) (viewmodel.ProductForm, error) {
	parts := strings.Split(args, ";")
	if len(parts) < 4 || len(parts) > 5 {
		return form, errors.New("expected name;price;category;description[;image]")
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	if parts[0] != "" {
		form.Name = parts[0]
	}
	if parts[1] != "" {
		price, err := decimal.NewFromString(parts[1])
		if err != nil {
			return form, fmt.Errorf("price %q is not a number", parts[1])
		}
		form.Price = price
	}
	if parts[2] != "" {
		form.Category = parts[2]
	}
	if parts[3] != "" {
		form.Description = parts[3]
	}
	if len(parts) == 5 && parts[4] != "" {
		form.Image = parts[4]
	}
	return form, nil
}

func find(products []models.Product, id string) (models.Product, bool) {
	for _, p := range products {
		if p.ID == id {
			return p, true
		}
	}
	return models.Product{}, false
}
