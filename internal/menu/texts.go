package menu

import "github.com/okothc/sauti/internal/domain"

func defaultMenus() map[string]map[domain.SessionState]Definition {
	return map[string]map[domain.SessionState]Definition{
		"en": {
			domain.StateMain: {
				Title: "Research Information System",
				Options: []string{
					"1. Research Information",
					"2. Answer Research Questions",
					"3. Record Voice Response",
					"4. Listen to Research Summary",
					"5. Change Language",
					"0. Exit",
				},
			},
			domain.StateInfo: {
				Title: "Research Information",
				Options: []string{
					"1. About This Research",
					"2. How to Participate",
					"3. Privacy & Data Use",
					"4. Contact Information",
					"0. Back to Main Menu",
				},
			},
		},
		"sw": {
			domain.StateMain: {
				Title: "Mfumo wa Taarifa za Utafiti",
				Options: []string{
					"1. Taarifa za Utafiti",
					"2. Jibu Maswali ya Utafiti",
					"3. Rekodi Jibu la Sauti",
					"4. Sikiliza Muhtasari wa Utafiti",
					"5. Badili Lugha",
					"0. Toka",
				},
			},
			domain.StateInfo: {
				Title: "Taarifa za Utafiti",
				Options: []string{
					"1. Kuhusu Utafiti Huu",
					"2. Jinsi ya Kushiriki",
					"3. Faragha na Matumizi ya Data",
					"4. Taarifa za Mawasiliano",
					"0. Rudi kwenye Menyu Kuu",
				},
			},
		},
	}
}

func defaultTexts() map[string]map[string]string {
	return map[string]map[string]string{
		"en": {
			"error_message":           "Sorry, there was an error. Please try again later.",
			"no_questions":            "No research questions available at the moment.",
			"voice_call_initiated":    "You will receive a call shortly for voice recording.",
			"voice_call_error":        "Unable to initiate voice call. Please try again later.",
			"summary_feature_coming":  "Research summary feature coming soon!",
			"goodbye":                 "Thank you for participating in our research!",
			"invalid_option":          "Invalid option. Please try again.",
			"about_research":          "This research aims to understand community needs and experiences. Your participation helps improve services.",
			"how_to_participate":      "You can participate by answering questions via USSD or voice calls. All responses are confidential.",
			"privacy_info":            "Your data is kept confidential and used only for research purposes. You can withdraw at any time.",
			"contact_info":            "For questions, contact: research@example.com or call +254700000000",
			"select_question":         "Select a question to answer:",
			"back_to_main":            "Back to Main Menu",
			"type_answer":             "Please type your answer:",
			"response_saved":          "Thank you! Your response has been saved.",
			"response_saved_with_sms": "Thank you! Your response has been saved. You will receive a confirmation SMS shortly.",
			"response_save_error":     "Error saving response. Please try again.",
			"voice_welcome":           "Welcome to the Research Information System. Thank you for participating in our study.",
			"voice_menu":              "Press 1 to answer research questions, Press 2 to listen to research information, or Press 0 to end the call.",
			"voice_make_selection":    "Please make your selection.",
			"voice_no_selection":      "We did not receive your selection. Goodbye.",
			"voice_question_prompt":   "Please answer the following question after the beep. You have up to 2 minutes to respond.",
			"voice_question_counter":  "Question %d of %d.",
			"voice_speak_after_beep":  "Please speak after the beep.",
			"voice_recorded":          "Thank you for your response. Your answer has been recorded.",
			"voice_complete":          "Thank you for participating in our research. Your responses are valuable to us. Goodbye.",
			"voice_goodbye":           "Thank you for calling. Goodbye.",
			"voice_error":             "Sorry, there was an error. Please try again later.",
		},
		"sw": {
			"error_message":           "Samahani, kumekuwa na hitilafu. Tafadhali jaribu tena baadaye.",
			"no_questions":            "Hakuna maswali ya utafiti kwa sasa.",
			"voice_call_initiated":    "Utapokea simu hivi karibuni kwa ajili ya kurekodi sauti.",
			"voice_call_error":        "Haiwezi kuanzisha simu. Tafadhali jaribu tena baadaye.",
			"summary_feature_coming":  "Kipengele cha muhtasari wa utafiti kinakuja hivi karibuni!",
			"goodbye":                 "Asante kwa kushiriki katika utafiti wetu!",
			"invalid_option":          "Chaguo batili. Tafadhali jaribu tena.",
			"about_research":          "Utafiti huu unalenga kuelewa mahitaji na uzoefu wa jamii. Ushiriki wako unasaidia kuboresha huduma.",
			"how_to_participate":      "Unaweza kushiriki kwa kujibu maswali kupitia USSD au simu za sauti. Majibu yote ni ya siri.",
			"privacy_info":            "Data yako inawekwa kwa siri na inatumiwa tu kwa madhumuni ya utafiti. Unaweza kujiondoa wakati wowote.",
			"contact_info":            "Kwa maswali, wasiliana: research@example.com au piga simu +254700000000",
			"select_question":         "Chagua swali la kujibu:",
			"back_to_main":            "Rudi kwenye Menyu Kuu",
			"type_answer":             "Tafadhali andika jibu lako:",
			"response_saved":          "Asante! Jibu lako limehifadhiwa.",
			"response_saved_with_sms": "Asante! Jibu lako limehifadhiwa. Utapokea ujumbe wa uthibitisho hivi karibuni.",
			"response_save_error":     "Hitilafu katika kuhifadhi jibu. Tafadhali jaribu tena.",
			"voice_welcome":           "Karibu kwenye Mfumo wa Taarifa za Utafiti. Asante kwa kushiriki katika utafiti wetu.",
			"voice_menu":              "Bonyeza 1 kujibu maswali ya utafiti, Bonyeza 2 kusikiliza taarifa za utafiti, au Bonyeza 0 kumaliza simu.",
			"voice_make_selection":    "Tafadhali fanya chaguo lako.",
			"voice_no_selection":      "Hatukupokea chaguo lako. Kwaheri.",
			"voice_question_prompt":   "Tafadhali jibu swali lifuatalo baada ya mlio. Una dakika 2 kujibu.",
			"voice_question_counter":  "Swali %d kati ya %d.",
			"voice_speak_after_beep":  "Tafadhali ongea baada ya mlio.",
			"voice_recorded":          "Asante kwa jibu lako. Jibu lako limerekodiwa.",
			"voice_complete":          "Asante kwa kushiriki katika utafiti wetu. Majibu yako ni muhimu kwetu. Kwaheri.",
			"voice_goodbye":           "Asante kwa kupiga simu. Kwaheri.",
			"voice_error":             "Samahani, kumekuwa na hitilafu. Tafadhali jaribu tena baadaye.",
		},
	}
}
