package shop

import (
	"fmt"

	"github.com/m3rciful/starshop/core/telegram/format"
	"github.com/m3rciful/starshop/internal/chat"
	"github.com/m3rciful/starshop/internal/domain"
)

const (
	textGenericError    = "⚠️ Something went wrong, please try again later."
	textAccessDenied    = "⛔ You have no access."
	textProductNotFound = "❌ Product not found!"
	textProductDeleted  = "✅ Product deleted!"
	textCancelled       = "❌ Action cancelled"
	textNothingToCancel = "Nothing to cancel."

	textAdminMenu        = "<b>🔧 Admin panel</b>\n\nChoose an action:"
	textAskName          = "📝 <b>Adding a product</b>\n\nEnter the product name:"
	textAskDescription   = "📝 Enter the product description:"
	textAskPrice         = "💰 Enter the price in stars (a whole number):"
	textBadPrice         = "❌ Enter a valid price (a positive whole number)!"
	textAskMaterial      = "📦 <b>Send the product material:</b>\n\nYou can send:\n• Text\n• Photo\n• Video\n• File"
	textBadMaterial      = "❌ Unsupported material type!"
	textNeedText         = "❌ Please send text."
	textAskWelcomeText   = "✏️ <b>Editing the welcome message</b>\n\nSend the new text for /start:"
	textBadWelcomeHTML   = "❌ The text has invalid formatting.\n\nUse only &lt;b&gt;, &lt;i&gt;, &lt;u&gt;, &lt;s&gt;, &lt;a&gt; or &lt;code&gt; tags, close every tag and write &amp;lt; &amp;gt; &amp;amp; instead of &lt; &gt; &amp;"
	textAskWelcomeMedia  = "📸 <b>Send media (photo/video/GIF)</b>\n\nOr send /skip to keep text only"
	textBadWelcomeMedia  = "❌ Send a photo, video or GIF!"
	textWelcomeUpdated   = "✅ Welcome message updated!"
	textWelcomeWithMedia = "✅ Welcome message updated with media!"
	textEmptyCatalog     = "📋 <b>The product list is empty</b>"
	textProductList      = "📋 <b>Product list:</b>"

	labelAdd     = "➕ Add product"
	labelList    = "📋 Product list"
	labelWelcome = "✏️ Edit /start"
	labelStats   = "📊 Statistics"
	labelDelete  = "🗑 Delete"
	labelBack    = "◀️ Back"
	labelCancel  = "❌ Cancel"
)

func button(label string, a Action) chat.Button {
	return chat.Button{Label: label, Data: a.Data()}
}

func catalogKeyboard(products []domain.Product) chat.Keyboard {
	kb := make(chat.Keyboard, 0, len(products))
	for _, p := range products {
		kb = append(kb, []chat.Button{
			button(fmt.Sprintf("🛍 %s - %s", p.Name, format.Stars(p.Price)), Action{Kind: ActionBuy, ProductID: p.ID}),
		})
	}
	return kb
}

func adminKeyboard() chat.Keyboard {
	return chat.Keyboard{
		{button(labelAdd, Action{Kind: ActionAdminAddProduct})},
		{button(labelList, Action{Kind: ActionAdminListProducts})},
		{button(labelWelcome, Action{Kind: ActionAdminEditWelcome})},
		{button(labelStats, Action{Kind: ActionAdminStats})},
	}
}

func cancelKeyboard() chat.Keyboard {
	return chat.Keyboard{{button(labelCancel, Action{Kind: ActionAdminCancel})}}
}

func welcomeView(w domain.Welcome, products []domain.Product) chat.Message {
	msg := chat.HTML(w.Text).WithKeyboard(catalogKeyboard(products))
	if w.Media != nil {
		msg.Kind = chat.MediaKind(w.Media.Kind)
		msg.Ref = w.Media.Ref
	}
	return msg
}

func adminMenuView() chat.Message {
	return chat.HTML(textAdminMenu).WithKeyboard(adminKeyboard())
}

func productListView(products []domain.Product) chat.Message {
	if len(products) == 0 {
		return chat.HTML(textEmptyCatalog).WithKeyboard(adminKeyboard())
	}
	kb := make(chat.Keyboard, 0, len(products)+1)
	for _, p := range products {
		kb = append(kb, []chat.Button{
			button(fmt.Sprintf("%s - %s", p.Name, format.Stars(p.Price)), Action{Kind: ActionAdminView, ProductID: p.ID}),
		})
	}
	kb = append(kb, []chat.Button{button(labelBack, Action{Kind: ActionAdminBack})})
	return chat.HTML(textProductList).WithKeyboard(kb)
}

func productCardView(p domain.Product) chat.Message {
	text := fmt.Sprintf("🛍 %s\n\n📝 Description: %s\n💰 Price: %s\n📦 Material: %s",
		format.Bold(p.Name), format.Escape(p.Description), format.Stars(p.Price), p.Material.Kind)
	return chat.HTML(text).WithKeyboard(chat.Keyboard{
		{button(labelDelete, Action{Kind: ActionAdminDelete, ProductID: p.ID})},
		{button(labelBack, Action{Kind: ActionAdminListProducts})},
	})
}

func statsView(s domain.Stats, productCount int) chat.Message {
	text := fmt.Sprintf("📊 <b>Statistics</b>\n\n🛍 Products: %d\n📦 Orders: %d\n💰 Revenue: %s",
		productCount, s.TotalOrders, format.Stars(s.TotalRevenue))
	return chat.HTML(text).WithKeyboard(adminKeyboard())
}

func productAddedView(p domain.Product) chat.Message {
	text := fmt.Sprintf("✅ <b>Product added!</b>\n\nName: %s\nDescription: %s\nPrice: %s",
		format.Escape(p.Name), format.Escape(p.Description), format.Stars(p.Price))
	return chat.HTML(text).WithKeyboard(adminKeyboard())
}

func prompt(text string) chat.Message {
	return chat.HTML(text).WithKeyboard(cancelKeyboard())
}
