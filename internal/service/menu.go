package service

import "github.com/shopspring/decimal"

// Menu categories.
const (
	CategorySashimi  = "Sashimi"
	CategorySushi    = "Sushi"
	CategoryRoll     = "Roll"
	CategoryTemaki   = "Temaki"
	CategoryHotDish  = "Prato Quente"
	CategoryBeverage = "Bebida"
)

func item(code int, name, price, category string) CatalogItem {
	return CatalogItem{
		Code:     code,
		Name:     name,
		Price:    decimal.RequireFromString(price),
		Category: category,
	}
}

var defaultMenu = []CatalogItem{
	item(1, "Sashimi de Salmão", "25.00", CategorySashimi),
	item(2, "Sashimi de Atum", "28.00", CategorySashimi),
	item(3, "Sashimi Misto", "35.00", CategorySashimi),
	item(4, "Sashimi de Peixe Branco", "22.00", CategorySashimi),
	item(5, "Sashimi de Polvo", "26.00", CategorySashimi),

	item(6, "Nigiri de Salmão", "8.00", CategorySushi),
	item(7, "Nigiri de Atum", "9.00", CategorySushi),
	item(8, "Nigiri de Camarão", "8.50", CategorySushi),
	item(9, "Nigiri de Polvo", "9.50", CategorySushi),
	item(10, "Nigiri de Ouriço", "15.00", CategorySushi),

	item(11, "California Roll", "22.00", CategoryRoll),
	item(12, "Philadelphia Roll", "24.00", CategoryRoll),
	item(13, "Spicy Tuna Roll", "26.00", CategoryRoll),
	item(14, "Dragon Roll", "32.00", CategoryRoll),
	item(15, "Rainbow Roll", "28.00", CategoryRoll),
	item(16, "Tempura Roll", "25.00", CategoryRoll),
	item(17, "Salmon Skin Roll", "20.00", CategoryRoll),
	item(18, "Spider Roll", "30.00", CategoryRoll),
	item(19, "Caterpillar Roll", "29.00", CategoryRoll),
	item(20, "Dynamite Roll", "27.00", CategoryRoll),

	item(21, "Temaki de Salmão", "18.00", CategoryTemaki),
	item(22, "Temaki de Atum", "19.00", CategoryTemaki),
	item(23, "Temaki Misto", "22.00", CategoryTemaki),
	item(24, "Temaki Vegetariano", "16.00", CategoryTemaki),
	item(25, "Temaki de Kani", "20.00", CategoryTemaki),

	item(26, "Tempurá de Camarão", "35.00", CategoryHotDish),
	item(27, "Yakitori", "28.00", CategoryHotDish),
	item(28, "Teppanyaki", "45.00", CategoryHotDish),
	item(29, "Lámen", "32.00", CategoryHotDish),
	item(30, "Udon", "30.00", CategoryHotDish),

	item(31, "Chá Verde", "8.00", CategoryBeverage),
	item(32, "Sake Quente", "25.00", CategoryBeverage),
	item(33, "Cerveja Japonesa", "18.00", CategoryBeverage),
	item(34, "Refrigerante", "7.00", CategoryBeverage),
	item(35, "Água Mineral", "5.00", CategoryBeverage),
}

// DefaultCatalog returns the fixed 35-item restaurant menu.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(defaultMenu)
	if err != nil {
		panic("default menu: " + err.Error())
	}
	return c
}
