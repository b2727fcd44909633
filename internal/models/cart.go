package models

// MenuItem est la référence d'un plat envoyée par l'interface au moment de l'ajout
type MenuItem struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ImageURL string `json:"imageUrl,omitempty"`
	Price    int64  `json:"price"` // centimes
}

// CartLineItem est une ligne du panier. Nom, image et prix sont copiés à l'ajout.
type CartLineItem struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ImageURL  string `json:"imageUrl,omitempty"`
	UnitPrice int64  `json:"unitPrice"`
	Quantity  int    `json:"quantity"`
}

// Total retourne unitPrice × quantity
func (l CartLineItem) Total() int64 {
	return l.UnitPrice * int64(l.Quantity)
}

type Cart struct {
	Items []CartLineItem `json:"items"`
}

// Subtotal est toujours recalculé, jamais stocké
func (c Cart) Subtotal() int64 {
	var total int64
	for _, item := range c.Items {
		total += item.Total()
	}
	return total
}

// Count retourne le nombre total d'articles (somme des quantités)
func (c Cart) Count() int {
	count := 0
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}

func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}
