package services

import (
	"github.com/tradebook/tradebook-backend/internal/models"
	"github.com/tradebook/tradebook-backend/internal/utils"
)

func (s *ServiceTestSuite) TestWeightedAverageAcrossPurchasesAndSale() {
	product := s.newProduct("SKU-1", "10")

	s.buy(product.ID, 10, "5")
	s.buy(product.ID, 10, "7")

	p := s.reload(product.ID)
	s.Equal(int64(20), p.StockQuantity)
	s.decEqual("6", p.UnitCost)

	sale, err := s.sell(nil, "50", SaleLineRequest{ProductID: product.ID, Quantity: 5})
	s.Require().NoError(err)

	s.decEqual("50", sale.TotalAmount)
	s.decEqual("30", sale.TotalCost)
	s.decEqual("20", sale.TotalProfit)
	s.Equal(models.SaleStatusPaid, sale.Status)
	s.Require().Len(sale.Details, 1)
	s.decEqual("6", sale.Details[0].UnitCost)

	p = s.reload(product.ID)
	s.Equal(int64(15), p.StockQuantity)
	s.decEqual("6", p.UnitCost, "selling must not move the average")
}

func (s *ServiceTestSuite) TestOpeningStockCountsTowardsAverage() {
	product, err := s.products.CreateProduct(s.ctx, &CreateProductRequest{
		Code:         "OPEN-1",
		Name:         "Opening",
		UnitPrice:    dec("9"),
		UnitCost:     dec("3"),
		InitialStock: 10,
	})
	s.Require().NoError(err)
	s.Equal(int64(10), product.StockQuantity)
	s.decEqual("3", product.UnitCost)

	purchase := s.buy(product.ID, 10, "5")
	s.decEqual("4", s.reload(product.ID).UnitCost)

	s.Require().NoError(s.purchases.DeletePurchase(s.ctx, purchase.ID))
	p := s.reload(product.ID)
	s.Equal(int64(10), p.StockQuantity)
	s.decEqual("3", p.UnitCost)
}

func (s *ServiceTestSuite) TestDeletePurchaseRecomputesFromRemainingBatches() {
	product := s.newProduct("SKU-2", "10")
	s.buy(product.ID, 10, "5")
	second := s.buy(product.ID, 10, "7")

	_, err := s.sell(nil, "50", SaleLineRequest{ProductID: product.ID, Quantity: 5})
	s.Require().NoError(err)

	s.Require().NoError(s.purchases.DeletePurchase(s.ctx, second.ID))

	p := s.reload(product.ID)
	s.Equal(int64(5), p.StockQuantity)
	s.decEqual("5", p.UnitCost)

	_, err = s.purchases.GetPurchase(s.ctx, second.ID)
	s.ErrorIs(err, ErrNotFound)
	s.Equal(int64(1), s.count(&models.InventoryBatch{}))
}

func (s *ServiceTestSuite) TestDeleteThenReaddPurchaseRestoresStock() {
	product := s.newProduct("SKU-9", "10")
	s.buy(product.ID, 10, "5.25")
	second := s.buy(product.ID, 4, "2.1")

	before := s.reload(product.ID)
	s.Equal(int64(14), before.StockQuantity)
	s.decEqual("4.35", before.UnitCost)
	s.decEqual("60.9", before.StockValue())

	s.Require().NoError(s.purchases.DeletePurchase(s.ctx, second.ID))
	s.decEqual("5.25", s.reload(product.ID).UnitCost)

	s.buy(product.ID, 4, "2.1")

	after := s.reload(product.ID)
	s.Equal(before.StockQuantity, after.StockQuantity)
	s.decEqual(before.UnitCost.String(), after.UnitCost)
	s.decEqual(before.StockValue().String(), after.StockValue())

	summary, err := s.dashboard.Summary(s.ctx, utils.DateRange{})
	s.Require().NoError(err)
	s.decEqual("60.9", summary.StockValue)
	s.decEqual("60.9", summary.PurchasesTotal)
}

func (s *ServiceTestSuite) TestDeletePurchaseFloorsStockAtZero() {
	product := s.newProduct("SKU-3", "10")
	purchase := s.buy(product.ID, 10, "4")

	_, err := s.sell(nil, "80", SaleLineRequest{ProductID: product.ID, Quantity: 8})
	s.Require().NoError(err)

	s.Require().NoError(s.purchases.DeletePurchase(s.ctx, purchase.ID))

	p := s.reload(product.ID)
	s.Equal(int64(0), p.StockQuantity)
	s.True(p.UnitCost.IsZero())
}

func (s *ServiceTestSuite) TestUpdatePurchaseReplacesLines() {
	product := s.newProduct("SKU-4", "10")
	other := s.newProduct("SKU-5", "10")
	purchase := s.buy(product.ID, 10, "5")

	updated, err := s.purchases.UpdatePurchase(s.ctx, purchase.ID, &PurchaseRequest{
		Notes: "corrected",
		Items: []PurchaseLineRequest{
			{ProductID: product.ID, Quantity: 4, UnitCost: dec("8")},
			{ProductID: other.ID, Quantity: 2, UnitCost: dec("1.5")},
		},
	})
	s.Require().NoError(err)
	s.Equal("corrected", updated.Notes)
	s.Len(updated.Details, 2)
	s.decEqual("35", updated.TotalAmount)
	s.Equal(purchase.ReferenceNo, updated.ReferenceNo)

	p := s.reload(product.ID)
	s.Equal(int64(4), p.StockQuantity)
	s.decEqual("8", p.UnitCost)

	o := s.reload(other.ID)
	s.Equal(int64(2), o.StockQuantity)
	s.decEqual("1.5", o.UnitCost)
}

func (s *ServiceTestSuite) TestPurchaseRejectsInactiveProduct() {
	product := s.newProduct("SKU-6", "10")
	s.Require().NoError(s.products.DeactivateProduct(s.ctx, product.ID))

	_, err := s.purchases.CreatePurchase(s.ctx, &PurchaseRequest{
		Items: []PurchaseLineRequest{{ProductID: product.ID, Quantity: 1, UnitCost: dec("1")}},
	})
	s.ErrorIs(err, ErrInactiveProduct)
	s.Equal(int64(0), s.count(&models.Purchase{}))
}

func (s *ServiceTestSuite) TestPurchaseRejectsUnknownProduct() {
	_, err := s.purchases.CreatePurchase(s.ctx, &PurchaseRequest{
		Items: []PurchaseLineRequest{{ProductID: 999, Quantity: 1, UnitCost: dec("1")}},
	})
	s.ErrorIs(err, ErrNotFound)
	s.Equal(int64(0), s.count(&models.Purchase{}))
}

func (s *ServiceTestSuite) TestInsufficientStockLeavesNoTrace() {
	product := s.newProduct("SKU-7", "10")
	s.buy(product.ID, 15, "2")
	trader := s.newTrader("Acme")

	_, err := s.sell(&trader.ID, "0", SaleLineRequest{ProductID: product.ID, Quantity: 16})
	s.ErrorIs(err, ErrInsufficientStock)

	s.Equal(int64(15), s.reload(product.ID).StockQuantity)
	s.Equal(int64(0), s.count(&models.Sale{}))
	s.Equal(int64(0), s.count(&models.SaleDetail{}))
	s.Equal(int64(0), s.count(&models.TraderFinancial{}))
	s.True(s.trader(trader.ID).Balance.IsZero())
}

func (s *ServiceTestSuite) TestStockCheckAggregatesRepeatedLines() {
	product := s.newProduct("SKU-8", "10")
	s.buy(product.ID, 15, "2")

	_, err := s.sell(nil, "160",
		SaleLineRequest{ProductID: product.ID, Quantity: 8},
		SaleLineRequest{ProductID: product.ID, Quantity: 8},
	)
	s.ErrorIs(err, ErrInsufficientStock)
	s.Equal(int64(15), s.reload(product.ID).StockQuantity)
}

func (s *ServiceTestSuite) TestSaleUsesPriceOverride() {
	product := s.newProduct("SKU-9", "10")
	s.buy(product.ID, 5, "4")

	sale, err := s.sell(nil, "24", SaleLineRequest{ProductID: product.ID, Quantity: 2, UnitPrice: price("12")})
	s.Require().NoError(err)
	s.decEqual("24", sale.TotalAmount)
	s.decEqual("16", sale.TotalProfit)
}

func (s *ServiceTestSuite) TestWalkInSaleMustBePaidInFull() {
	product := s.newProduct("SKU-10", "10")
	s.buy(product.ID, 5, "4")

	_, err := s.sell(nil, "5", SaleLineRequest{ProductID: product.ID, Quantity: 1})
	s.ErrorIs(err, ErrTraderRequired)
	s.Equal(int64(5), s.reload(product.ID).StockQuantity)

	sale, err := s.sell(nil, "10", SaleLineRequest{ProductID: product.ID, Quantity: 1})
	s.Require().NoError(err)
	s.Nil(sale.TraderID)
	s.Empty(sale.Payments)
	s.Equal(int64(0), s.count(&models.Payment{}))
}

func (s *ServiceTestSuite) TestSaleRejectsOverpayment() {
	product := s.newProduct("SKU-11", "10")
	s.buy(product.ID, 5, "4")
	trader := s.newTrader("Acme")

	_, err := s.sell(&trader.ID, "11", SaleLineRequest{ProductID: product.ID, Quantity: 1})
	s.ErrorIs(err, ErrOverpayment)
	s.Equal(int64(5), s.reload(product.ID).StockQuantity)
}

func (s *ServiceTestSuite) TestSaleRejectsInactiveTrader() {
	product := s.newProduct("SKU-12", "10")
	s.buy(product.ID, 5, "4")
	trader := s.newTrader("Gone")
	s.Require().NoError(s.traders.DeactivateTrader(s.ctx, trader.ID))

	_, err := s.sell(&trader.ID, "0", SaleLineRequest{ProductID: product.ID, Quantity: 1})
	s.ErrorIs(err, ErrInactiveTrader)
}

func (s *ServiceTestSuite) TestDeleteSaleRestoresStockAndReversesLedger() {
	product := s.newProduct("SKU-13", "10")
	s.buy(product.ID, 10, "5")
	trader := s.newTrader("Acme")

	sale, err := s.sell(&trader.ID, "20", SaleLineRequest{ProductID: product.ID, Quantity: 4})
	s.Require().NoError(err)
	s.Require().Len(sale.Payments, 1)
	s.decEqual("20", s.trader(trader.ID).Balance)

	s.Require().NoError(s.sales.DeleteSale(s.ctx, sale.ID))

	p := s.reload(product.ID)
	s.Equal(int64(10), p.StockQuantity)
	s.decEqual("5", p.UnitCost)

	t := s.trader(trader.ID)
	s.True(t.Balance.IsZero())
	s.True(t.TotalSales.IsZero())
	s.True(t.TotalPayments.IsZero())
	s.Equal(int64(0), s.count(&models.Payment{}))

	var types []models.LedgerEntryType
	s.Require().NoError(s.db.Model(&models.TraderFinancial{}).Order("id asc").Pluck("entry_type", &types).Error)
	s.Equal([]models.LedgerEntryType{
		models.LedgerEntrySale,
		models.LedgerEntryPayment,
		models.LedgerEntryPaymentReversal,
		models.LedgerEntrySaleReversal,
	}, types)
}

func (s *ServiceTestSuite) TestDuplicateProductCode() {
	s.newProduct("DUP-1", "1")

	_, err := s.products.CreateProduct(s.ctx, &CreateProductRequest{Code: "DUP-1", Name: "Again"})
	s.ErrorIs(err, ErrDuplicate)
}

func (s *ServiceTestSuite) TestLowStockProducts() {
	low := s.newProduct("LOW-1", "1")
	s.buy(low.ID, 3, "1")
	plenty := s.newProduct("LOW-2", "1")
	s.buy(plenty.ID, 30, "1")

	products, err := s.products.LowStockProducts(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(products, 1)
	s.Equal(low.ID, products[0].ID)

	found, total, err := s.products.SearchProducts(s.ctx, ProductSearchParams{LowStock: true})
	s.Require().NoError(err)
	s.Equal(int64(1), total)
	s.Equal("LOW-1", found[0].Code)
}

func (s *ServiceTestSuite) TestUpdateProductKeepsCostAndStock() {
	product := s.newProduct("UPD-1", "1")
	s.buy(product.ID, 4, "2")

	name := "Renamed"
	updated, err := s.products.UpdateProduct(s.ctx, product.ID, &UpdateProductRequest{Name: &name, UnitPrice: price("3")})
	s.Require().NoError(err)
	s.Equal("Renamed", updated.Name)
	s.decEqual("3", updated.UnitPrice)
	s.Equal(int64(4), updated.StockQuantity)
	s.decEqual("2", updated.UnitCost)
}
