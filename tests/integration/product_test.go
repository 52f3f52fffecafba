//go:build integration

package integration

import (
	"net/http"
	"testing"
)

func TestListProducts(t *testing.T) {
	resp := doGet(t, "/api/products")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	products := decodeJSON[[]productResponse](t, resp)
	if len(products) != 4 {
		t.Fatalf("expected 4 products, got %d", len(products))
	}
}

func TestListProducts_Fields(t *testing.T) {
	resp := doGet(t, "/api/products")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	products := decodeJSON[[]productResponse](t, resp)

	var panjabi *productResponse
	for i := range products {
		if products[i].ID == "panjabi-classic" {
			panjabi = &products[i]
			break
		}
	}

	if panjabi == nil {
		t.Fatal("product 'panjabi-classic' not found")
	}
	if panjabi.Name != "Classic Cotton Panjabi" {
		t.Errorf("name: got %q, want %q", panjabi.Name, "Classic Cotton Panjabi")
	}
	if panjabi.PriceFormatted != "৳1,450" {
		t.Errorf("price_formatted: got %q, want %q", panjabi.PriceFormatted, "৳1,450")
	}
	if len(panjabi.Sizes) != 4 {
		t.Errorf("sizes: got %d entries, want 4", len(panjabi.Sizes))
	}
	if len(panjabi.Colors) != 3 {
		t.Errorf("colors: got %d entries, want 3", len(panjabi.Colors))
	}
	if panjabi.Image.Thumbnail == "" {
		t.Error("image.thumbnail is empty")
	}
}

func TestGetProduct(t *testing.T) {
	resp := doGet(t, "/api/products/tshirt-basic")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	product := decodeJSON[productResponse](t, resp)
	if product.ID != "tshirt-basic" {
		t.Errorf("id: got %q, want %q", product.ID, "tshirt-basic")
	}
	if product.Name != "Basic Crew T-Shirt" {
		t.Errorf("name: got %q, want %q", product.Name, "Basic Crew T-Shirt")
	}
}

func TestGetProduct_NotFound(t *testing.T) {
	resp := doGet(t, "/api/products/nope")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}

	errResp := decodeJSON[errorResponse](t, resp)
	if errResp.Code != 404 {
		t.Errorf("error code: got %d, want 404", errResp.Code)
	}
}

func TestDeliveryOptions(t *testing.T) {
	for _, tt := range []struct {
		zone    string
		fee     string
		minDays int
		maxDays int
	}{
		{"inside", "60", 1, 3},
		{"outside", "120", 3, 7},
	} {
		resp := doGet(t, "/api/delivery/"+tt.zone)

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("zone %s: expected 200, got %d", tt.zone, resp.StatusCode)
		}

		d := decodeJSON[deliveryResponse](t, resp)
		resp.Body.Close()

		if d.Fee != tt.fee {
			t.Errorf("zone %s: fee got %q, want %q", tt.zone, d.Fee, tt.fee)
		}
		if d.MinDays != tt.minDays || d.MaxDays != tt.maxDays {
			t.Errorf("zone %s: estimate got %d-%d, want %d-%d",
				tt.zone, d.MinDays, d.MaxDays, tt.minDays, tt.maxDays)
		}
	}
}

func TestDeliveryOptions_InvalidZone(t *testing.T) {
	resp := doGet(t, "/api/delivery/mars")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}
