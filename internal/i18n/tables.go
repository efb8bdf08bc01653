package i18n

var builtinOrder = []string{"en", "ru", "he"}

var builtin = map[string]map[string]string{
	"en": {
		KeyWelcome:      "Welcome to our Taxi Service! 🚕\n\nPress the button below to order a taxi.",
		KeyLangLabel:    "🇬🇧 English",
		KeyBtnOrder:     "🚖 Order Taxi",
		KeyAskName:      "Please enter your name:",
		KeyBtnContact:   "📱 Share Contact",
		KeyAskPhone:     "Please share your phone number:\n(You can share your contact or type the number manually)",
		KeyBtnLocation:  "📍 Send Current Location",
		KeyAskPickup:    "Please send your pickup location:\n(You can send your current location or type the address)",
		KeyAskDropoff:   "Please enter the drop-off address:",
		KeySummaryTitle: "📋 Order Summary:",
		KeyFieldName:    "👤 Name: %s",
		KeyFieldPhone:   "📱 Phone: %s",
		KeyFieldPickup:  "📍 Pickup: %s",
		KeyFieldDropoff: "🏁 Drop-off: %s",
		KeyFieldComment: "💬 Comment: %s",
		KeyPickupCoords: "📍 Location: %s, %s",
		KeyBtnConfirm:   "✅ Confirm Order",
		KeyBtnComment:   "💬 Add Comment",
		KeyAskComment:   "Please enter your comment:",
		KeyAccepted:     "✅ Your order has been accepted, wait for a call from the driver.",
		KeyNoFulfillers: "⚠️ No drivers are currently registered. The admin has been notified.",
		KeyThanks:       "Thank you for using our service!",
		KeyCancelled:    "Order cancelled. Press the button to start a new order.",

		KeyOrderTitle:         "🚖 NEW ORDER",
		KeyOrderNav:           "🔗 Waze Navigation: %s",
		KeyOrderContactHandle: "💬 Contact customer: @%s",
		KeyOrderContactPhone:  "💬 Contact customer by phone: %s",
		KeyNoPhone:            "(no phone)",

		KeyDriverWelcome: "🚕 Welcome to Driver Bot!\n\nYour Chat ID: `%d`\n\nSend this Chat ID to the administrator to start receiving orders.\n\nYou will receive new orders automatically in this chat.",
		KeyDriverHelp: "🚕 *Driver Bot Help*\n\nThis bot receives taxi orders automatically.\n\n" +
			"When a passenger places an order, you will receive:\n" +
			"• Customer name and phone\n• Pickup and drop-off locations\n• Waze navigation link\n" +
			"• Customer's Telegram username for contact\n\n" +
			"Contact customers directly through Telegram to confirm the ride.",
	},
	"ru": {
		KeyWelcome:      "Добро пожаловать в наше такси! 🚕\n\nНажмите кнопку ниже, чтобы заказать такси.",
		KeyLangLabel:    "🇷🇺 Русский",
		KeyBtnOrder:     "🚖 Заказать такси",
		KeyAskName:      "Пожалуйста, введите ваше имя:",
		KeyBtnContact:   "📱 Поделиться контактом",
		KeyAskPhone:     "Пожалуйста, отправьте ваш номер телефона:\n(Можно поделиться контактом или ввести номер вручную)",
		KeyBtnLocation:  "📍 Отправить геопозицию",
		KeyAskPickup:    "Пожалуйста, отправьте место посадки:\n(Можно отправить геопозицию или ввести адрес)",
		KeyAskDropoff:   "Пожалуйста, введите адрес назначения:",
		KeySummaryTitle: "📋 Ваш заказ:",
		KeyFieldName:    "👤 Имя: %s",
		KeyFieldPhone:   "📱 Телефон: %s",
		KeyFieldPickup:  "📍 Откуда: %s",
		KeyFieldDropoff: "🏁 Куда: %s",
		KeyFieldComment: "💬 Комментарий: %s",
		KeyPickupCoords: "📍 Геопозиция: %s, %s",
		KeyBtnConfirm:   "✅ Подтвердить заказ",
		KeyBtnComment:   "💬 Добавить комментарий",
		KeyAskComment:   "Пожалуйста, введите комментарий:",
		KeyAccepted:     "✅ Ваш заказ принят, ожидайте звонка водителя.",
		KeyNoFulfillers: "⚠️ Сейчас нет зарегистрированных водителей. Администратор уведомлён.",
		KeyThanks:       "Спасибо, что пользуетесь нашим сервисом!",
		KeyCancelled:    "Заказ отменён. Нажмите кнопку, чтобы оформить новый заказ.",

		KeyDriverWelcome: "🚕 Добро пожаловать в бот для водителей!\n\nВаш Chat ID: `%d`\n\nОтправьте этот Chat ID администратору, чтобы начать получать заказы.\n\nНовые заказы будут приходить в этот чат автоматически.",
	},
	"he": {
		KeyWelcome:      "ברוכים הבאים לשירות המוניות שלנו! 🚕\n\nלחצו על הכפתור למטה כדי להזמין מונית.",
		KeyLangLabel:    "🇮🇱 עברית",
		KeyBtnOrder:     "🚖 הזמנת מונית",
		KeyAskName:      "נא להזין את שמך:",
		KeyBtnContact:   "📱 שיתוף איש קשר",
		KeyAskPhone:     "נא לשתף את מספר הטלפון שלך:\n(אפשר לשתף איש קשר או להקליד את המספר)",
		KeyBtnLocation:  "📍 שליחת מיקום נוכחי",
		KeyAskPickup:    "נא לשלוח את מקום האיסוף:\n(אפשר לשלוח מיקום נוכחי או להקליד כתובת)",
		KeyAskDropoff:   "נא להזין את כתובת היעד:",
		KeySummaryTitle: "📋 סיכום ההזמנה:",
		KeyFieldName:    "👤 שם: %s",
		KeyFieldPhone:   "📱 טלפון: %s",
		KeyFieldPickup:  "📍 איסוף: %s",
		KeyFieldDropoff: "🏁 יעד: %s",
		KeyFieldComment: "💬 הערה: %s",
		KeyPickupCoords: "📍 מיקום: %s, %s",
		KeyBtnConfirm:   "✅ אישור הזמנה",
		KeyBtnComment:   "💬 הוספת הערה",
		KeyAskComment:   "נא להזין הערה:",
		KeyAccepted:     "✅ ההזמנה התקבלה, המתינו לשיחה מהנהג.",
		KeyNoFulfillers: "⚠️ אין כרגע נהגים רשומים. המנהל קיבל הודעה.",
		KeyThanks:       "תודה שהשתמשתם בשירות שלנו!",
		KeyCancelled:    "ההזמנה בוטלה. לחצו על הכפתור כדי להתחיל הזמנה חדשה.",
	},
}
