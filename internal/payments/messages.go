package payments

import (
	"fmt"

	"github.com/m3rciful/starshop/core/telegram/format"
	"github.com/m3rciful/starshop/internal/chat"
	"github.com/m3rciful/starshop/internal/domain"
)

const (
	textProductNotFound = "❌ Product not found. It may have been removed from the catalog."
	textMaterialCaption = "📄 Your material"
	reasonUnavailable   = "This product is no longer available."
	reasonPriceMismatch = "The price has changed. Please request a new invoice."
	reasonCurrency      = "Unsupported currency."
)

func purchaseConfirmation(p domain.Product) chat.Message {
	return chat.HTML(fmt.Sprintf("✅ <b>Thank you for your purchase!</b>\n\nProduct: %s\nPrice: %s",
		format.Escape(p.Name), format.Stars(p.Price)))
}

func raceApology(productID string) chat.Message {
	return chat.HTML(fmt.Sprintf("❌ <b>We could not deliver your purchase.</b>\n\nProduct ID: %s\n\nPlease contact the administrator!",
		format.Escape(productID)))
}

func raceAlert(buyer Buyer, productID string) chat.Message {
	return chat.HTML(fmt.Sprintf("⚠️ <b>Fulfillment error!</b>\n\nUser %s paid for product %s, but it is no longer in the catalog.",
		format.Escape(buyer.Mention()), format.Escape(productID)))
}

func deliveryAlert(buyer Buyer, o domain.Order) chat.Message {
	return chat.HTML(fmt.Sprintf("⚠️ <b>Delivery failed!</b>\n\nUser %s paid for %s (order #%d), but the material was not delivered. Please send it manually.",
		format.Escape(buyer.Mention()), format.Escape(o.ProductName), o.ID))
}

func saleNotice(buyer Buyer, p domain.Product) chat.Message {
	return chat.HTML(fmt.Sprintf("💰 <b>New sale!</b>\n\nProduct: %s\nPrice: %s\nBuyer: %s",
		format.Escape(p.Name), format.Stars(p.Price), format.Escape(buyer.Mention())))
}

// materialMessage maps a material to the matching outbound content type.
func materialMessage(m domain.Material) (chat.Message, error) {
	switch m.Kind {
	case domain.MaterialText:
		return chat.HTML("📄 <b>Your material:</b>\n\n" + format.Escape(m.Content)), nil
	case domain.MaterialFile:
		return chat.Message{Kind: chat.MediaDocument, Ref: m.Content, Text: textMaterialCaption}, nil
	case domain.MaterialPhoto:
		return chat.Message{Kind: chat.MediaPhoto, Ref: m.Content, Text: textMaterialCaption}, nil
	case domain.MaterialVideo:
		return chat.Message{Kind: chat.MediaVideo, Ref: m.Content, Text: textMaterialCaption}, nil
	}
	return chat.Message{}, domain.Invalidf("unsupported material type %q", m.Kind)
}
