package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mmeshcher/livreur-console/internal/catalog"
	"github.com/mmeshcher/livreur-console/internal/dashboard"
	"github.com/mmeshcher/livreur-console/internal/model"
	"github.com/mmeshcher/livreur-console/internal/orderview"
	"github.com/mmeshcher/livreur-console/internal/theme"
)

// Dashboard отображает главный экран курьера.
func (s *Styles) Dashboard(st dashboard.State) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var blocks []string

	if st.Summary != nil {
		c := st.Summary.Livreur
		header := s.title.Render(fmt.Sprintf("Bonjour %s %s", c.FirstName, c.LastName))
		blocks = append(blocks, header)

		ts := st.Summary.TodayStats
		stats := lipgloss.JoinHorizontal(lipgloss.Top,
			s.panel.Render(s.stat("Assignées", fmt.Sprint(ts.Assigned))),
			s.panel.Render(s.stat("En cours", fmt.Sprint(ts.InProgress))),
			s.panel.Render(s.stat("Livrées", fmt.Sprint(ts.Delivered))),
			s.panel.Render(s.stat("Refusées", fmt.Sprint(ts.Refused))),
			s.panel.Render(s.stat("Gains", ts.Earnings.StringFixed(2)+" €")),
		)
		blocks = append(blocks, stats)
	}

	if st.IsAvailable {
		blocks = append(blocks, s.success.Render("● Disponible"))
	} else {
		blocks = append(blocks, s.muted.Render("○ Indisponible"))
	}

	blocks = append(blocks, s.title.Render(fmt.Sprintf("Mes livraisons (%d)", len(st.Orders))))
	if len(st.Orders) == 0 {
		blocks = append(blocks, s.muted.Render("Aucune livraison en cours"))
	}
	for _, o := range st.Orders {
		blocks = append(blocks, s.orderRow(o))
	}

	blocks = append(blocks, s.scanner(st.Scanner))

	if st.Detail != nil {
		blocks = append(blocks, s.detail(*st.Detail))
	}

	return lipgloss.JoinVertical(lipgloss.Left, blocks...)
}

// Orders отображает список заказов.
func (s *Styles) Orders(orders []model.Order) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(orders) == 0 {
		return s.muted.Render("Aucune livraison en cours")
	}
	rows := make([]string, 0, len(orders))
	for _, o := range orders {
		rows = append(rows, s.orderRow(o))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (s *Styles) stat(label, value string) string {
	return s.accent.Render(value) + "\n" + s.muted.Render(label)
}

func (s *Styles) orderRow(o model.Order) string {
	line := fmt.Sprintf("%s  %s  %s, %s",
		s.text.Render(o.OrderNumber),
		s.badge.Render(o.Status.Label()),
		o.ShippingAddress.Street,
		o.ShippingAddress.City,
	)
	if o.PaymentMethod == model.PaymentCashOnDelivery {
		line += "  " + s.accent.Render(o.TotalAmount.StringFixed(2)+" €")
	}
	return s.panel.Render(line + "\n" + s.muted.Render("#"+o.ID+"  "+o.DeliveryCode))
}

func (s *Styles) scanner(sc dashboard.ScannerState) string {
	switch sc.Mode {
	case dashboard.ScannerCamera:
		lines := []string{s.title.Render("Scanner un colis") + "  " + s.muted.Render(sc.Session.String())}
		if sc.CameraError != "" {
			lines = append(lines, s.danger.Render("Caméra indisponible : "+sc.CameraError))
			lines = append(lines, s.muted.Render("Saisissez le code manuellement"))
		}
		if sc.LookupError != "" {
			lines = append(lines, s.danger.Render(sc.LookupError))
		}
		return s.panel.Render(strings.Join(lines, "\n"))
	case dashboard.ScannerManual:
		lines := []string{s.title.Render("Saisir un code") + "  " + s.muted.Render("LIV-XXXX")}
		if sc.LookupError != "" {
			lines = append(lines, s.danger.Render(sc.LookupError))
		}
		return s.panel.Render(strings.Join(lines, "\n"))
	default:
		return s.button.Render("[ Scanner un colis ]") + "  " + s.button.Render("[ Saisir un code ]")
	}
}

// Order отображает карточку заказа.
func (s *Styles) Order(snap orderview.Snapshot) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.detail(snap)
}

func (s *Styles) detail(snap orderview.Snapshot) string {
	o := snap.Order
	a := o.ShippingAddress

	lines := []string{
		s.title.Render("Commande "+o.OrderNumber) + "  " + s.badge.Render(o.Status.Label()),
		s.muted.Render("Code : " + o.DeliveryCode),
		"",
		s.text.Render(a.Street),
		s.text.Render(strings.TrimSpace(a.PostalCode + " " + a.City)),
		s.text.Render("Tél : " + a.Phone),
	}
	if a.Instructions != "" {
		lines = append(lines, s.muted.Render("Instructions : "+a.Instructions))
	}

	lines = append(lines, "")
	for _, it := range o.Items {
		lines = append(lines, fmt.Sprintf("%d × %s  %s €", it.Quantity, it.Title, it.Subtotal().StringFixed(2)))
	}
	lines = append(lines, s.accent.Render("Total : "+o.TotalAmount.StringFixed(2)+" €")+"  "+s.muted.Render(o.PaymentMethod.Label()))
	if amount := o.AmountToCollect(); amount.IsPositive() {
		lines = append(lines, s.danger.Render("À encaisser : "+amount.StringFixed(2)+" €"))
	}
	if o.CustomerNote != "" {
		lines = append(lines, s.muted.Render("Note client : "+o.CustomerNote))
	}

	if len(snap.Transitions) > 0 {
		lines = append(lines, "")
		var buttons []string
		for _, t := range snap.Transitions {
			label := "[ " + t.Label + " ]"
			disabled := snap.Submitting || (t.RequiresReason && snap.Reason == "")
			if disabled {
				buttons = append(buttons, s.muted.Render(label))
			} else {
				buttons = append(buttons, s.button.Render(label))
			}
		}
		lines = append(lines, strings.Join(buttons, "  "))
	}
	if snap.Reason != "" {
		lines = append(lines, s.muted.Render("Motif : "+snap.Reason.Label()))
	}

	return s.panel.Render(strings.Join(lines, "\n"))
}

// History отображает страницу истории доставок.
func (s *Styles) History(page *model.HistoryPage) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lines := []string{s.title.Render(fmt.Sprintf("Historique (page %d/%d, %d livraisons)",
		page.Pagination.Page, page.Pagination.Pages, page.Pagination.Total))}
	for _, o := range page.Orders {
		lines = append(lines, fmt.Sprintf("%s  %s  %s  %s €",
			o.CreatedAt.Format("02/01/2006"),
			o.OrderNumber,
			s.badge.Render(o.Status.Label()),
			o.TotalAmount.StringFixed(2),
		))
	}
	return strings.Join(lines, "\n")
}

// Cards отображает карточки категорий.
func (s *Styles) Cards(cards []catalog.Card) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tiles := make([]string, 0, len(cards))
	for _, c := range cards {
		body := s.title.Render(c.Icon+" "+c.Title) + "\n" + s.muted.Render(c.CountLabel)
		if c.Description != "" {
			body += "\n" + s.text.Render(c.Description)
		}
		body += "\n" + s.button.Render(c.Href)
		tiles = append(tiles, s.panel.Render(body))
	}
	return lipgloss.JoinVertical(lipgloss.Left, tiles...)
}

// Toasts отображает всплывающие сообщения.
func (s *Styles) Toasts(toasts []dashboard.Toast) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lines := make([]string, 0, len(toasts))
	for _, t := range toasts {
		if t.Kind == dashboard.ToastError {
			lines = append(lines, s.danger.Render("✗ "+t.Message))
		} else {
			lines = append(lines, s.success.Render("✓ "+t.Message))
		}
	}
	return strings.Join(lines, "\n")
}

// Theme отображает выбор темы и доступные палитры.
func (s *Styles) Theme(sel model.ThemeSelection) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lines := []string{s.title.Render("Thème")}
	for _, name := range theme.PaletteNames() {
		swatch := lipgloss.NewStyle().Background(lipgloss.Color(theme.Palettes[name].Primary)).Render("  ")
		marker := " "
		if name == sel.Palette {
			marker = "›"
		}
		lines = append(lines, fmt.Sprintf("%s %s %s", marker, swatch, name))
	}
	mode := "clair"
	if sel.Dark {
		mode = "sombre"
	}
	lines = append(lines, s.muted.Render("Mode : "+mode))
	return strings.Join(lines, "\n")
}
