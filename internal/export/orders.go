// Package export renders admin reports as XLSX workbooks.
package export

import (
	"fmt"
	"io"

	"github.com/tealeg/xlsx"

	"github.com/prockx/storefront/internal/models"
)

const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const timeLayout = "2006-01-02 15:04:05"

var orderHeaders = []string{
	"ID", "CreatedAt", "Customer", "Email", "Status", "Paid", "Delivered",
	"PaymentMethod", "City", "Items", "ItemsTotal", "Tax", "Shipping", "GrandTotal",
}

var itemHeaders = []string{"OrderID", "ProductID", "Name", "Quantity", "UnitPrice", "LineTotal"}

func OrdersWorkbook(orders []models.Order) (*xlsx.File, error) {
	file := xlsx.NewFile()

	sheet, err := file.AddSheet("Orders")
	if err != nil {
		return nil, fmt.Errorf("add orders sheet: %w", err)
	}
	items, err := file.AddSheet("Items")
	if err != nil {
		return nil, fmt.Errorf("add items sheet: %w", err)
	}

	header(sheet, orderHeaders)
	header(items, itemHeaders)

	for _, o := range orders {
		var name, email string
		if o.Owner != nil {
			name, email = o.Owner.Name, o.Owner.Email
		}

		row := sheet.AddRow()
		row.AddCell().SetString(o.ID.String())
		row.AddCell().SetString(o.CreatedAt.Format(timeLayout))
		row.AddCell().SetString(name)
		row.AddCell().SetString(email)
		row.AddCell().SetString(o.Status)
		row.AddCell().SetBool(o.IsPaid)
		row.AddCell().SetBool(o.IsDelivered)
		row.AddCell().SetString(o.PaymentMethod)
		row.AddCell().SetString(o.ShippingAddress.City)
		row.AddCell().SetInt(len(o.Items))
		row.AddCell().SetFloat(o.ItemsTotal.InexactFloat64())
		row.AddCell().SetFloat(o.TaxTotal.InexactFloat64())
		row.AddCell().SetFloat(o.ShippingTotal.InexactFloat64())
		row.AddCell().SetFloat(o.GrandTotal.InexactFloat64())

		for _, it := range o.Items {
			r := items.AddRow()
			r.AddCell().SetString(o.ID.String())
			r.AddCell().SetString(it.ProductID.String())
			r.AddCell().SetString(it.Name)
			r.AddCell().SetInt(it.Quantity)
			r.AddCell().SetFloat(it.UnitPrice.InexactFloat64())
			r.AddCell().SetFloat(it.LineTotal().InexactFloat64())
		}
	}
	return file, nil
}

func WriteOrders(w io.Writer, orders []models.Order) error {
	file, err := OrdersWorkbook(orders)
	if err != nil {
		return err
	}
	return file.Write(w)
}

func header(sheet *xlsx.Sheet, cols []string) {
	row := sheet.AddRow()
	for _, h := range cols {
		row.AddCell().SetString(h)
	}
}
