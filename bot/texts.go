package bot

// User-facing texts. The bot speaks Russian; button labels double as reserved
// inputs the router must intercept before anything else sees them.
const (
	ButtonStartDialog = "Начать диалог"
	ButtonClearDialog = "Очистить диалог ❌"

	CallbackClearHistoryYes = "clear_history_yes"
	CallbackClearHistoryNo  = "clear_history_no"
	CallbackRemoveVIP       = "remove_vip_action"

	textStartVIP = "Привет! Если ты видишь это сообщение, значит ты избранный, жми кнопку ниже чтобы начать."
	textNoAccess = "Для использования этого бота необходим VIP(( обратись к @Ivanka58."
	textWelcome  = "Добро пожаловать! Для использования этого бота необходим VIP(( обратись к @Ivanka58."
	textHelp     = "Если возникли вопросы, обратись к разработчику @Ivanka58."

	textStartDialog       = "Можешь задавать мне любые вопросы, присылать задания, фото, текст, на все отвечу!"
	textClearConfirm      = "Вы действительно хотите очистить диалог? Он навсегда сотрётся из этого мира."
	textClearYes          = "Да"
	textClearNo           = "Нет"
	textHistoryCleared    = "Ваш диалог стерт."
	textHistoryKept       = "Ваш диалог сохранён, продолжайте общение."
	textThinking          = "Думаю..."
	textVoiceUnsupported  = "Голосовые сообщения пока в разработке, пиши текст!"
	textPipelineError     = "Произошла ошибка при обработке запроса. Попробуйте позже."
	textEmptyCompletion   = "Нечего сказать 🤷‍♂️"
	imageCaptionFallback  = "Image uploaded"

	textAskPassword          = "Введи пароль:"
	textAskVIPAllPassword    = "Введи пароль для доступа к списку VIP:"
	textAskBroadcastPassword = "Введи пароль для рассылки:"
	textAskRemoveUsername    = "Введите юзернейм пользователя, у которого нужно забрать VIP (без @):"
	textWrongPassword        = "Пароль неверный, доступ закрыт."
	textWrongPasswordShort   = "Пароль неверный."
	textWrongPasswordCancel  = "Пароль неверный. Операция отменена."
	textPasswordOKUsername   = "Пароль верный, напиши юзернейм пользователя (без @)."
	textPasswordOKBroadcast  = "Пароль верный. Введите сообщение для рассылки всем VIP пользователям:"
	textVIPListEmpty         = "Список VIP пуст."
	textVIPListButton        = "Забрать VIP"
	textVIPGrantedNotice     = "Администратор выдал вам VIP доступ! Нажмите /start чтобы начать пользоваться ботом!"
	textVIPRevokedNotice     = "Администратор забрал у вас VIP доступ."
	textNotifyFailed         = "Не удалось отправить уведомление пользователю (возможно бот заблокирован), но VIP выдан."
)

func textVIPGranted(username string) string {
	return "Пользователю @" + username + " выдан VIP!"
}

func textVIPNotFound(username string) string {
	return "Пользователь @" + username + " не найден в базе. Попросите его нажать /start в боте."
}

func textVIPNotFoundOrNotVIP(username string) string {
	return "Пользователь @" + username + " не найден или не является VIP."
}

func textVIPRemoveConfirm(username string) string {
	return "Вы хотите забрать VIP у @" + username + ". Введите пароль еще раз для подтверждения:"
}

func textVIPRevoked(username string) string {
	return "У пользователя @" + username + " успешно забран VIP."
}

func textVIPList(list string) string {
	return "Список всех VIP пользователей:\n\n" + list
}
