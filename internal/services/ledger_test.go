package services

import (
	"github.com/shopspring/decimal"

	"github.com/tradebook/tradebook-backend/internal/models"
	"github.com/tradebook/tradebook-backend/internal/utils"
)

// assertLedgerConsistent checks that the trader row matches the ledger sums and that the
// balance equals everything sold minus everything paid.
func (s *ServiceTestSuite) assertLedgerConsistent(traderID uint) {
	var sales []models.Sale
	s.Require().NoError(s.db.Where("trader_id = ?", traderID).Find(&sales).Error)
	var payments []models.Payment
	s.Require().NoError(s.db.Where("trader_id = ?", traderID).Find(&payments).Error)

	sold, paid := decimal.Zero, decimal.Zero
	for _, sale := range sales {
		sold = sold.Add(sale.TotalAmount)
	}
	for _, p := range payments {
		paid = paid.Add(p.Amount)
	}

	t := s.trader(traderID)
	s.decEqual(sold.String(), t.TotalSales, "total sales")
	s.decEqual(paid.String(), t.TotalPayments, "total payments")
	s.decEqual(sold.Sub(paid).String(), t.Balance, "balance")

	totals, err := ledgerTotals(s.db, traderID)
	s.Require().NoError(err)
	s.decEqual(t.Balance.String(), totals.Balance, "ledger balance")
}

func (s *ServiceTestSuite) TestPaymentsSettleSale() {
	product := s.newProduct("PAY-1", "10")
	s.buy(product.ID, 10, "5")
	s.buy(product.ID, 10, "7")
	trader := s.newTrader("Acme")

	sale, err := s.sell(&trader.ID, "0", SaleLineRequest{ProductID: product.ID, Quantity: 5})
	s.Require().NoError(err)
	s.Equal(models.SaleStatusPending, sale.Status)
	s.decEqual("50", s.trader(trader.ID).Balance)

	_, err = s.payments.CreatePayment(s.ctx, &CreatePaymentRequest{TraderID: trader.ID, SaleID: &sale.ID, Amount: dec("30")})
	s.Require().NoError(err)

	got, err := s.sales.GetSale(s.ctx, sale.ID)
	s.Require().NoError(err)
	s.decEqual("30", got.PaidAmount)
	s.decEqual("20", got.RemainingAmount)
	s.Equal(models.SaleStatusPending, got.Status)
	s.decEqual("20", s.trader(trader.ID).Balance)

	_, err = s.payments.CreatePayment(s.ctx, &CreatePaymentRequest{TraderID: trader.ID, SaleID: &sale.ID, Amount: dec("20"), Method: models.PaymentMethodBank})
	s.Require().NoError(err)

	got, err = s.sales.GetSale(s.ctx, sale.ID)
	s.Require().NoError(err)
	s.Equal(models.SaleStatusPaid, got.Status)
	s.True(got.RemainingAmount.IsZero())
	s.True(s.trader(trader.ID).Balance.IsZero())

	_, err = s.payments.CreatePayment(s.ctx, &CreatePaymentRequest{TraderID: trader.ID, SaleID: &sale.ID, Amount: dec("1")})
	s.ErrorIs(err, ErrOverpayment)

	s.assertLedgerConsistent(trader.ID)
}

func (s *ServiceTestSuite) TestPaymentForAnotherTradersSale() {
	product := s.newProduct("PAY-2", "10")
	s.buy(product.ID, 10, "5")
	owner := s.newTrader("Owner")
	other := s.newTrader("Other")

	sale, err := s.sell(&owner.ID, "0", SaleLineRequest{ProductID: product.ID, Quantity: 1})
	s.Require().NoError(err)

	_, err = s.payments.CreatePayment(s.ctx, &CreatePaymentRequest{TraderID: other.ID, SaleID: &sale.ID, Amount: dec("5")})
	s.ErrorIs(err, ErrSaleMismatch)
	s.Equal(int64(0), s.count(&models.Payment{}))
	s.True(s.trader(other.ID).Balance.IsZero())
}

func (s *ServiceTestSuite) TestUnlinkedPaymentCanCreateCredit() {
	trader := s.newTrader("Prepaid")

	_, err := s.payments.CreatePayment(s.ctx, &CreatePaymentRequest{TraderID: trader.ID, Amount: dec("15")})
	s.Require().NoError(err)

	t := s.trader(trader.ID)
	s.decEqual("-15", t.Balance)
	s.assertLedgerConsistent(trader.ID)
}

func (s *ServiceTestSuite) TestPaymentRejectsNonPositiveAmount() {
	trader := s.newTrader("Acme")

	_, err := s.payments.CreatePayment(s.ctx, &CreatePaymentRequest{TraderID: trader.ID, Amount: decimal.Zero})
	s.Error(err)
	s.Equal(int64(0), s.count(&models.Payment{}))
}

func (s *ServiceTestSuite) TestDeletePaymentReopensSale() {
	product := s.newProduct("PAY-3", "10")
	s.buy(product.ID, 10, "5")
	trader := s.newTrader("Acme")

	sale, err := s.sell(&trader.ID, "40", SaleLineRequest{ProductID: product.ID, Quantity: 4})
	s.Require().NoError(err)
	s.Equal(models.SaleStatusPaid, sale.Status)
	s.Require().Len(sale.Payments, 1)

	s.Require().NoError(s.payments.DeletePayment(s.ctx, sale.Payments[0].ID))

	got, err := s.sales.GetSale(s.ctx, sale.ID)
	s.Require().NoError(err)
	s.Equal(models.SaleStatusPending, got.Status)
	s.True(got.PaidAmount.IsZero())
	s.decEqual("40", got.RemainingAmount)
	s.decEqual("40", s.trader(trader.ID).Balance)

	_, err = s.payments.GetPayment(s.ctx, sale.Payments[0].ID)
	s.ErrorIs(err, ErrNotFound)
	s.assertLedgerConsistent(trader.ID)
}

func (s *ServiceTestSuite) TestBalanceInvariantOverMixedActivity() {
	product := s.newProduct("MIX-1", "3")
	s.buy(product.ID, 100, "1")
	a := s.newTrader("A")
	b := s.newTrader("B")

	first, err := s.sell(&a.ID, "5", SaleLineRequest{ProductID: product.ID, Quantity: 10})
	s.Require().NoError(err)
	_, err = s.sell(&a.ID, "0", SaleLineRequest{ProductID: product.ID, Quantity: 3, UnitPrice: price("2.5")})
	s.Require().NoError(err)
	second, err := s.sell(&b.ID, "0", SaleLineRequest{ProductID: product.ID, Quantity: 7})
	s.Require().NoError(err)

	_, err = s.payments.CreatePayment(s.ctx, &CreatePaymentRequest{TraderID: a.ID, SaleID: &first.ID, Amount: dec("12.5")})
	s.Require().NoError(err)
	_, err = s.payments.CreatePayment(s.ctx, &CreatePaymentRequest{TraderID: a.ID, Amount: dec("4")})
	s.Require().NoError(err)
	s.Require().NoError(s.sales.DeleteSale(s.ctx, second.ID))

	s.assertLedgerConsistent(a.ID)
	s.assertLedgerConsistent(b.ID)
	s.decEqual("16", s.trader(a.ID).Balance)
	s.True(s.trader(b.ID).Balance.IsZero())
	s.Equal(int64(87), s.reload(product.ID).StockQuantity)
}

func (s *ServiceTestSuite) TestLedgerRowsCarryRunningTotals() {
	product := s.newProduct("RUN-1", "10")
	s.buy(product.ID, 10, "5")
	trader := s.newTrader("Acme")

	_, err := s.sell(&trader.ID, "4", SaleLineRequest{ProductID: product.ID, Quantity: 1})
	s.Require().NoError(err)

	entries, total, err := s.traders.Ledger(s.ctx, trader.ID, utils.PaginationParams{Page: 1, Limit: 10})
	s.Require().NoError(err)
	s.Equal(int64(2), total)
	s.Require().Len(entries, 2)

	s.Equal(models.LedgerEntrySale, entries[0].EntryType)
	s.decEqual("10", entries[0].BalanceAfter)
	s.Equal(models.LedgerEntryPayment, entries[1].EntryType)
	s.decEqual("10", entries[1].TotalSalesAfter)
	s.decEqual("4", entries[1].TotalPaymentsAfter)
	s.decEqual("6", entries[1].BalanceAfter)
}

func (s *ServiceTestSuite) TestRebuildTotalsRepairsDrift() {
	product := s.newProduct("DRIFT-1", "10")
	s.buy(product.ID, 10, "5")
	trader := s.newTrader("Acme")
	_, err := s.sell(&trader.ID, "0", SaleLineRequest{ProductID: product.ID, Quantity: 2})
	s.Require().NoError(err)

	s.Require().NoError(s.db.Model(&models.Trader{}).Where("id = ?", trader.ID).
		Updates(map[string]interface{}{"balance": dec("999"), "total_sales": dec("999")}).Error)

	rebuilt, err := s.traders.RebuildTotals(s.ctx, trader.ID)
	s.Require().NoError(err)
	s.decEqual("20", rebuilt.Balance)
	s.decEqual("20", rebuilt.TotalSales)
	s.assertLedgerConsistent(trader.ID)

	_, err = s.traders.RebuildTotals(s.ctx, 4242)
	s.ErrorIs(err, ErrNotFound)
}

func (s *ServiceTestSuite) TestStatementListsOpenSales() {
	product := s.newProduct("STMT-1", "10")
	s.buy(product.ID, 10, "5")
	trader := s.newTrader("Acme")

	_, err := s.sell(&trader.ID, "10", SaleLineRequest{ProductID: product.ID, Quantity: 1})
	s.Require().NoError(err)
	open, err := s.sell(&trader.ID, "5", SaleLineRequest{ProductID: product.ID, Quantity: 2})
	s.Require().NoError(err)

	statement, err := s.traders.Statement(s.ctx, trader.ID)
	s.Require().NoError(err)
	s.decEqual("30", statement.TotalSales)
	s.decEqual("15", statement.TotalPayments)
	s.decEqual("15", statement.Balance)
	s.Require().Len(statement.OpenSales, 1)
	s.Equal(open.ID, statement.OpenSales[0].ID)
	s.decEqual("15", statement.OpenAmount)
	s.Equal(int64(4), statement.LedgerEntries)
}

func (s *ServiceTestSuite) TestListTradersFilters() {
	s.newTrader("Customer One")
	_, err := s.traders.CreateTrader(s.ctx, &CreateTraderRequest{Name: "Supplier One", Type: models.TraderTypeSupplier})
	s.Require().NoError(err)
	_, err = s.traders.CreateTrader(s.ctx, &CreateTraderRequest{Name: "Both Ways", Type: models.TraderTypeBoth})
	s.Require().NoError(err)

	suppliers, total, err := s.traders.ListTraders(s.ctx, TraderSearchParams{Type: models.TraderTypeSupplier})
	s.Require().NoError(err)
	s.Equal(int64(2), total)
	s.Len(suppliers, 2)

	found, total, err := s.traders.ListTraders(s.ctx, TraderSearchParams{PaginationParams: utils.PaginationParams{Search: "customer"}})
	s.Require().NoError(err)
	s.Equal(int64(1), total)
	s.Equal("Customer One", found[0].Name)
}

func (s *ServiceTestSuite) TestUpdateTraderLeavesTotalsAlone() {
	product := s.newProduct("UPT-1", "10")
	s.buy(product.ID, 10, "5")
	trader := s.newTrader("Acme")
	_, err := s.sell(&trader.ID, "0", SaleLineRequest{ProductID: product.ID, Quantity: 1})
	s.Require().NoError(err)

	phone := "555-0100"
	updated, err := s.traders.UpdateTrader(s.ctx, trader.ID, &UpdateTraderRequest{Phone: &phone})
	s.Require().NoError(err)
	s.Equal(phone, updated.Phone)
	s.decEqual("10", updated.Balance)

	_, err = s.traders.UpdateTrader(s.ctx, 4242, &UpdateTraderRequest{Phone: &phone})
	s.ErrorIs(err, ErrNotFound)
}

func (s *ServiceTestSuite) TestFractionalAmountsStayExact() {
	product := s.newProduct("CENT-1", "1")
	s.buy(product.ID, 10, "0.05")
	trader := s.newTrader("Acme")

	for _, p := range []string{"0.1", "0.2", "0.3"} {
		_, err := s.sell(&trader.ID, "0", SaleLineRequest{ProductID: product.ID, Quantity: 1, UnitPrice: price(p)})
		s.Require().NoError(err)
	}
	_, err := s.payments.CreatePayment(s.ctx, &CreatePaymentRequest{TraderID: trader.ID, Amount: dec("0.1")})
	s.Require().NoError(err)

	s.decEqual("0.6", s.trader(trader.ID).TotalSales)
	s.decEqual("0.5", s.trader(trader.ID).Balance)
	s.assertLedgerConsistent(trader.ID)

	entries, _, err := s.traders.Ledger(s.ctx, trader.ID, utils.PaginationParams{Page: 1, Limit: 10})
	s.Require().NoError(err)
	s.Require().Len(entries, 4)
	s.decEqual("0.6", entries[2].TotalSalesAfter)
	s.decEqual("0.5", entries[3].BalanceAfter)

	rebuilt, err := s.traders.RebuildTotals(s.ctx, trader.ID)
	s.Require().NoError(err)
	s.decEqual("0.5", rebuilt.Balance)
	s.decEqual("0.6", rebuilt.TotalSales)

	statement, err := s.traders.Statement(s.ctx, trader.ID)
	s.Require().NoError(err)
	s.decEqual("0.6", statement.TotalSales)
	s.decEqual("0.5", statement.Balance)

	for _, amount := range []string{"0.1", "0.2"} {
		_, err = s.expenses.CreateExpense(s.ctx, &ExpenseRequest{Category: "fees", Description: "Card fee", Amount: dec(amount)})
		s.Require().NoError(err)
	}

	summary, err := s.dashboard.Summary(s.ctx, utils.DateRange{})
	s.Require().NoError(err)
	s.decEqual("0.6", summary.SalesRevenue)
	s.decEqual("0.15", summary.CostOfGoodsSold)
	s.decEqual("0.45", summary.GrossProfit)
	s.decEqual("0.3", summary.Expenses)
	s.decEqual("0.15", summary.NetProfit)
	s.decEqual("0.5", summary.Receivables)
	s.decEqual("0.1", summary.PaymentsReceived)

	categories, err := s.dashboard.ExpensesByCategory(s.ctx, utils.DateRange{})
	s.Require().NoError(err)
	s.Require().Len(categories, 1)
	s.decEqual("0.3", categories[0].Total)
}
